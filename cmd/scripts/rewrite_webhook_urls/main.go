package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm/logger"
)

// Recomputes webhook_receive for every monitor after API_BASE_URL changes.
func main() {
	dryRun := flag.Bool("dry-run", false, "print the changes without writing them")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.Open(&cfg.Database, logger.Silent)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var monitors []models.Monitor
	if err := db.Order("id").Find(&monitors).Error; err != nil {
		log.Fatalf("Failed to query monitors: %v", err)
	}

	fmt.Printf("Base URL: %s\n", cfg.App.BaseURL)
	fmt.Printf("%-6s %-30s %s\n", "ID", "Account", "Webhook receive")

	changed := 0
	for _, m := range monitors {
		want := cfg.WebhookReceiveURL(m.ID)
		if m.WebhookReceive == want {
			continue
		}
		fmt.Printf("%-6d %-30s %s -> %s\n", m.ID, m.AccountName, m.WebhookReceive, want)
		changed++

		if *dryRun {
			continue
		}
		if err := db.Model(&models.Monitor{}).Where("id = ?", m.ID).Update("webhook_receive", want).Error; err != nil {
			log.Fatalf("Failed to update monitor %d: %v", m.ID, err)
		}
	}

	fmt.Printf("\n%d of %d monitors need a new webhook URL", changed, len(monitors))
	if *dryRun {
		fmt.Println(" (dry run, nothing written)")
		return
	}
	fmt.Println(", updated")
}

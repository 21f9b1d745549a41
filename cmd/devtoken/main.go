package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/utils"
)

// Issues a bearer token signed with the configured secret, for local
// testing without the hosted auth service.
func main() {
	userID := flag.String("user", "", "user id (sub claim), random when empty")
	email := flag.String("email", "dev@example.com", "email claim")
	name := flag.String("name", "", "full_name in user_metadata")
	hours := flag.Int("hours", 24, "token lifetime in hours")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is not set")
	}

	utils.SetJWTSecret(cfg.Auth.JWTSecret)
	utils.SetJWTValidation(cfg.Auth.Issuer, cfg.Auth.Audience)

	sub := *userID
	if sub == "" {
		sub = uuid.NewString()
	}

	token, err := utils.GenerateToken(sub, *email, *name, *hours)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

package models

import (
	"fmt"
	"strings"

	"github.com/lucasfalb/aijarvis-system/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching the global.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// sqliteDSN turns on foreign keys so monitor/comment cascades hold.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// AutoMigrate creates or updates every table this service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Project{},
		&UserProject{},
		&Monitor{},
		&Comment{},
		&CommentTag{},
		&Reply{},
		&ActivityLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/forge/internal/models"
)

// Connect opens the run-tracking store. postgres:// and postgresql:// URLs select PostgreSQL; anything else is a SQLite DSN.
func Connect(url string) (*gorm.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database url must not be empty")
	}

	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		db, err := gorm.Open(postgres.Open(url), config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(url, "sqlite://")), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables used by forge.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.BenchmarkRun{}, &models.DatasetBuild{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

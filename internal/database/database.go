package database

import (
	"fmt"
	"log/slog"

	"expiring-cache-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open opens the SQLite database at path and runs migrations
func Open(path string) (*gorm.DB, error) {
	// glebarez/sqlite is a pure Go implementation (no CGO required)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	// Auto-migrate the schema (it will create tables if they don't exist)
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		return nil, fmt.Errorf("database: migrate: %w", err)
	}
	return db, nil
}

// InitDB opens the database and makes it available through GetDB
func InitDB(path string) (*gorm.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	DB = db
	slog.Info("database connected and migrated", slog.String("path", path))
	return db, nil
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

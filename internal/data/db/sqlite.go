package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

// OpenSQLite opens a SQLite database (a file path or "file::memory:?cache=shared").
// SQLite serializes writers, so the pool is pinned to one connection.
func OpenSQLite(logg *logger.Logger, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access SQLite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to configure SQLite: %w", err)
	}
	if logg != nil {
		logg.With("service", "SQLite").Info("Opened SQLite database", "dsn", dsn)
	}
	return db, nil
}

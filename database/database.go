package database

import (
	"fmt"
	"log"

	"resumeiq-backend/internal/domain/onboarding"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the store. driver is "postgres" (Supabase) or "sqlite".
// TranslateError is required: the services rely on gorm.ErrDuplicatedKey to
// report username and account conflicts.
func Open(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}

	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// A single connection serialises writers; SQLite would otherwise
		// return "database is locked" under concurrent credit updates.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the account tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&users.User{},
		&subscriptions.Subscription{},
		&onboarding.Response{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// MustInit opens and migrates the store, exiting on failure.
func MustInit(driver, dsn string) *gorm.DB {
	db, err := Open(driver, dsn)
	if err != nil {
		log.Fatal("❌ ", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatal("❌ ", err)
	}
	log.Println("✅ Connected and migrated successfully")
	return db
}

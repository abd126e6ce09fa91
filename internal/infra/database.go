package infra

import (
	"fmt"
	"time"

	"mypostelma/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and applies the
// embedded SQL migrations. The schema is owned by migrations/, never by
// AutoMigrate, so partial indexes and CHECK constraints stay exact.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RunMigrations(sqlDB); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// AutoMigrate creates the schema from the GORM models plus the patches GORM
// cannot express. Used for SQLite-backed tests and throwaway dev databases.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Location{},
		&model.CashSession{},
		&model.CashMovement{},
		&model.SessionAnnotation{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot derive from
// struct tags. Both statements are valid on PostgreSQL and SQLite.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// one open session per location
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_cash_sessions_open_location
		    ON cash_sessions (location_id)
		    WHERE status = 'open'`,
		`CREATE INDEX IF NOT EXISTS idx_session_annotations_session_created
		    ON session_annotations (session_id, created_at)`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

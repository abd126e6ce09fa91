// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"mypostelma/internal/infra"
	"mypostelma/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite opens an isolated in-memory database with the full schema.
// A single connection serializes writers the way row locks do on PostgreSQL.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.AutoMigrate(db))
	return db
}

// SeedLocation inserts an active location and returns it.
func SeedLocation(t testing.TB, db *gorm.DB, code string) *model.Location {
	t.Helper()
	loc := &model.Location{
		ID:        uuid.New(),
		Code:      code,
		Name:      code,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(loc).Error)
	return loc
}

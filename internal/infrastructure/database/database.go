package database

import (
	"strings"

	"epos-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB. Postgres URLs use the pgx driver with
// PreferSimpleProtocol so poolers (PgBouncer, Supabase) do not hit 42P05
// "prepared statement already exists". File DSNs open pure-Go SQLite for
// local runs.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if IsSQLite(dsn) {
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), cfg)
}

func IsSQLite(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || strings.HasSuffix(dsn, ".sqlite")
}

// AutoMigrate creates the plan history table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.PlanRecord{})
}

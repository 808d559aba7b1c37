package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name VARCHAR(100) NOT NULL,
		email VARCHAR(100) NOT NULL UNIQUE,
		role VARCHAR(20) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
		id UUID PRIMARY KEY,
		prescription_date DATE NOT NULL,
		patient_name VARCHAR(100) NOT NULL,
		patient_age INTEGER NOT NULL,
		patient_gender VARCHAR(10) NOT NULL,
		diagnosis TEXT,
		medicines TEXT,
		next_visit_date DATE,
		created_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_date ON prescriptions (prescription_date)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
		id TEXT PRIMARY KEY,
		prescription_date DATE NOT NULL,
		patient_name TEXT NOT NULL,
		patient_age INTEGER NOT NULL,
		patient_gender TEXT NOT NULL,
		diagnosis TEXT,
		medicines TEXT,
		next_visit_date DATE,
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_date ON prescriptions (prescription_date)`,
}

// Migrate creates the schema when it does not exist yet. Every statement is
// idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := postgresSchema
	if db.DriverName() == DriverSQLite {
		schema = sqliteSchema
	}

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

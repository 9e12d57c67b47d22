package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The column types stay within what both PostgreSQL and SQLite accept.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		student_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		gender TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		guardian_name TEXT,
		guardian_phone TEXT,
		guardian_relation TEXT,
		previous_school TEXT,
		strand TEXT,
		semester TEXT,
		school_year TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		submitted_by TEXT NOT NULL DEFAULT '',
		submitted_role TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_position ON students(position)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL
	)`,
}

// EnsureSchema creates the students and users tables when absent.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

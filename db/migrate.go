package db

import (
	"context"
	"fmt"
	"strings"
)

// Migrate creates the schema. Every statement is idempotent so it runs on
// each start.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if d.dialect == SQLite {
		stmts = sqliteSchema
	}

	for i, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i, firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i > 0 {
		return stmt[:i]
	}
	return stmt
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS counselors (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		expertise TEXT NOT NULL DEFAULT '[]',
		languages TEXT NOT NULL DEFAULT '[]',
		availability TEXT NOT NULL DEFAULT 'ACTIVE',
		current_load INTEGER NOT NULL DEFAULT 0,
		max_capacity INTEGER NOT NULL DEFAULT 10 CHECK (max_capacity >= 1),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		education TEXT NOT NULL DEFAULT '',
		lead_source TEXT NOT NULL DEFAULT '',
		preferred_language TEXT NOT NULL DEFAULT '',
		course_id BIGINT REFERENCES courses(id) ON DELETE SET NULL,
		assigned_counselor_id BIGINT REFERENCES counselors(id) ON DELETE SET NULL,
		auto_assigned BOOLEAN NOT NULL DEFAULT FALSE,
		assignment_reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'NEW',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT unassigned_not_auto CHECK (assigned_counselor_id IS NOT NULL OR auto_assigned = FALSE)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_counselor ON leads (assigned_counselor_id)`,
	`CREATE TABLE IF NOT EXISTS counseling_sessions (
		id BIGSERIAL PRIMARY KEY,
		lead_id BIGINT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		counselor_id BIGINT NOT NULL REFERENCES counselors(id) ON DELETE CASCADE,
		scheduled_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'SCHEDULED',
		remarks TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_counselor_status ON counseling_sessions (counselor_id, status, scheduled_date)`,
	`CREATE TABLE IF NOT EXISTS counselor_presence (
		counselor_id BIGINT PRIMARY KEY REFERENCES counselors(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		last_login_at TIMESTAMPTZ,
		last_activity_at TIMESTAMPTZ,
		last_status_change TIMESTAMPTZ,
		active_minutes_today INTEGER NOT NULL DEFAULT 0,
		total_active_minutes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS daily_attendance (
		id BIGSERIAL PRIMARY KEY,
		counselor_id BIGINT NOT NULL REFERENCES counselors(id) ON DELETE CASCADE,
		attendance_date DATE NOT NULL,
		login_time TIMESTAMPTZ,
		logout_time TIMESTAMPTZ,
		active_minutes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'ABSENT',
		UNIQUE (counselor_id, attendance_date)
	)`,
	`CREATE TABLE IF NOT EXISTS dlq_messages (
		id BIGSERIAL PRIMARY KEY,
		topic TEXT NOT NULL,
		message_key TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS counselors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		expertise TEXT NOT NULL DEFAULT '[]',
		languages TEXT NOT NULL DEFAULT '[]',
		availability TEXT NOT NULL DEFAULT 'ACTIVE',
		current_load INTEGER NOT NULL DEFAULT 0,
		max_capacity INTEGER NOT NULL DEFAULT 10 CHECK (max_capacity >= 1),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		education TEXT NOT NULL DEFAULT '',
		lead_source TEXT NOT NULL DEFAULT '',
		preferred_language TEXT NOT NULL DEFAULT '',
		course_id INTEGER REFERENCES courses(id) ON DELETE SET NULL,
		assigned_counselor_id INTEGER REFERENCES counselors(id) ON DELETE SET NULL,
		auto_assigned INTEGER NOT NULL DEFAULT 0,
		assignment_reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'NEW',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (assigned_counselor_id IS NOT NULL OR auto_assigned = 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_counselor ON leads (assigned_counselor_id)`,
	`CREATE TABLE IF NOT EXISTS counseling_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lead_id INTEGER NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		counselor_id INTEGER NOT NULL REFERENCES counselors(id) ON DELETE CASCADE,
		scheduled_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'SCHEDULED',
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_counselor_status ON counseling_sessions (counselor_id, status, scheduled_date)`,
	`CREATE TABLE IF NOT EXISTS counselor_presence (
		counselor_id INTEGER PRIMARY KEY REFERENCES counselors(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		last_login_at TEXT,
		last_activity_at TEXT,
		last_status_change TEXT,
		active_minutes_today INTEGER NOT NULL DEFAULT 0,
		total_active_minutes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS daily_attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		counselor_id INTEGER NOT NULL REFERENCES counselors(id) ON DELETE CASCADE,
		attendance_date TEXT NOT NULL,
		login_time TEXT,
		logout_time TEXT,
		active_minutes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'ABSENT',
		UNIQUE (counselor_id, attendance_date)
	)`,
	`CREATE TABLE IF NOT EXISTS dlq_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		message_key TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		resolved INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		resolved_at TEXT
	)`,
}

// Package dbtest opens throwaway SQLite databases shaped like the postgres
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE environments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE schedules (
		id TEXT PRIMARY KEY,
		environment_id TEXT NOT NULL,
		instructor_id TEXT,
		program TEXT NOT NULL,
		ficha TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE inventory_items (
		id TEXT PRIMARY KEY,
		environment_id TEXT,
		name TEXT NOT NULL,
		internal_code TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'available',
		quantity INTEGER NOT NULL DEFAULT 1,
		quantity_damaged INTEGER NOT NULL DEFAULT 0,
		quantity_missing INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	)`,
	`CREATE TABLE inventory_checks (
		id TEXT PRIMARY KEY,
		environment_id TEXT NOT NULL,
		schedule_id TEXT,
		student_id TEXT,
		instructor_id TEXT,
		supervisor_id TEXT,
		check_date DATE NOT NULL,
		check_time DATETIME NOT NULL,
		status TEXT NOT NULL,
		total_items INTEGER NOT NULL DEFAULT 0,
		items_good INTEGER NOT NULL DEFAULT 0,
		items_damaged INTEGER NOT NULL DEFAULT 0,
		items_missing INTEGER NOT NULL DEFAULT 0,
		is_clean BOOLEAN,
		is_organized BOOLEAN,
		inventory_complete BOOLEAN,
		cleaning_notes TEXT,
		comments TEXT,
		supervisor_comments TEXT,
		student_confirmed_at DATETIME,
		instructor_confirmed_at DATETIME,
		supervisor_confirmed_at DATETIME,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_inventory_checks_env_schedule_date
		ON inventory_checks (environment_id, COALESCE(schedule_id, '00000000-0000-0000-0000-000000000000'), check_date)`,
	`CREATE TABLE inventory_check_items (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		environment_id TEXT NOT NULL,
		user_id TEXT,
		status TEXT NOT NULL,
		quantity_expected INTEGER NOT NULL DEFAULT 1,
		quantity_found INTEGER NOT NULL DEFAULT 0,
		quantity_damaged INTEGER NOT NULL DEFAULT 0,
		quantity_missing INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE supervisor_reviews (
		id TEXT PRIMARY KEY,
		check_id TEXT NOT NULL,
		supervisor_id TEXT NOT NULL,
		decision TEXT NOT NULL,
		comments TEXT,
		reviewed_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'medium',
		action_url TEXT,
		check_id TEXT,
		event_id TEXT,
		expires_at DATETIME,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_notifications_user_event ON notifications (user_id, event_id) WHERE event_id IS NOT NULL`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a private in-memory database with the full schema applied.
// Each test gets its own database named after the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in a db.Client for services that own transactions.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.FromConn(Open(t))
}

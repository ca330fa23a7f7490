package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Code string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), gormConfig(nil))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	conn := newTestDB(t)
	client := FromConn(conn)

	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Code: "committed"}).Error
	}))

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Code: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	conn := newTestDB(t)
	client := FromConn(conn)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Code: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	})

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPing(t *testing.T) {
	client := FromConn(newTestDB(t))
	require.NoError(t, client.Ping(context.Background()))
}

func TestIsUniqueViolation_Sqlite(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.Create(&testModel{Code: "dup"}).Error)
	err := conn.Create(&testModel{Code: "dup"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, "ux_anything"))
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_inventory_checks_env_schedule_date"}
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr), "ux_inventory_checks_env_schedule_date"))
	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.False(t, IsUniqueViolation(pgErr, "other_constraint"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))

	pqErr := &pq.Error{Code: "23505", Constraint: "ux_users_email"}
	assert.True(t, IsUniqueViolation(pqErr, "ux_users_email"))

	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
}

func TestIsNotFound(t *testing.T) {
	conn := newTestDB(t)
	var m testModel
	err := conn.First(&m, "code = ?", "missing").Error
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor(config.DBConfig{})
	assert.Error(t, err)
	_, err = dialectorFor(config.DBConfig{DSN: "x", Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported")

	d, err := dialectorFor(config.DBConfig{DSN: "postgres://localhost/ambientes", Driver: " PGX "})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
	d, err = dialectorFor(config.DBConfig{DSN: ":memory:", Driver: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}

func TestQueryLoggerReportsFailuresOnly(t *testing.T) {
	var buf bytes.Buffer
	conn := newTestDB(t)
	conn.Logger = newQueryLogger(logger.New(logger.Options{ServiceName: "db-test", Output: &buf}))

	var m testModel
	_ = conn.First(&m, "code = ?", "missing").Error
	assert.Empty(t, buf.String(), "record not found is not logged")

	_ = conn.Exec("SELECT * FROM no_such_table").Error
	assert.Contains(t, buf.String(), "db.query_failed")
	assert.Contains(t, buf.String(), "no_such_table")
}

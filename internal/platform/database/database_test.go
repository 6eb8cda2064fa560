package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"story-endings/internal/config"
	"story-endings/internal/model"
)

func TestNew_SQLiteMigratesAndTranslatesDuplicates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "endings.db")

	db, err := New(context.Background(), config.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&model.User{Username: "bob", PasswordHash: "x"}).Error)
	err = db.Create(&model.User{Username: "bob", PasswordHash: "y"}).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestPing_ClosesPoolOnFailure(t *testing.T) {
	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "missing", "endings.db"))
	require.NoError(t, err)

	err = ping(context.Background(), sqlDB, config.DriverSQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite failed")
	assert.EqualError(t, sqlDB.Ping(), "sql: database is closed")
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), "mongo", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

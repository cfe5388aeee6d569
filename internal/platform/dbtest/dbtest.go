// Package dbtest 为各模块的测试提供已迁移的临时SQLite数据库。
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/database"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/schema"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenRaw 在 t.TempDir() 下打开一个尚未迁移的SQLite数据库
func OpenRaw(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "metrics.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Open 打开一个已经迁移到最新结构的SQLite数据库
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db := OpenRaw(t)
	require.NoError(t, schema.NewManager(db, nil).Ensure(context.Background()))
	return db
}

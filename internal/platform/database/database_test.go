package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("a.db?cache=shared"))
	assert.Equal(t, "a.db?_busy_timeout=100", sqliteDSN("a.db?_busy_timeout=100"))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel(""))
	assert.Equal(t, logger.Warn, gormLogLevel("WARN"))
	assert.Equal(t, logger.Info, gormLogLevel("debug"))
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "x.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, Close(db))
	assert.NoError(t, Close(nil))

	_, err = Open(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestInitRedis(t *testing.T) {
	t.Cleanup(func() { UpdateStatus(true) })

	client, err := InitRedis(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client, "未配置地址时不启用Redis")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	UpdateStatus(false)
	client, err = InitRedis(context.Background(), config.RedisConfig{Address: addr})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
	assert.True(t, IsRedisHealthy())
}

func TestInitRedisUnreachable(t *testing.T) {
	t.Cleanup(func() { UpdateStatus(true) })

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	UpdateStatus(false)
	client, err := InitRedis(context.Background(), config.RedisConfig{Address: addr})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.False(t, IsRedisHealthy(), "连接失败时不应标记为健康")
}

func TestNewRedisClientIsIndependent(t *testing.T) {
	cfg := config.RedisConfig{Address: "127.0.0.1:1"}
	a, b := NewRedisClient(cfg), NewRedisClient(cfg)
	defer a.Close()
	defer b.Close()
	assert.NotSame(t, a, b)
	assert.Equal(t, cfg.Address, a.Options().Addr)
}

func TestUpdateStatusReportsChange(t *testing.T) {
	t.Cleanup(func() { UpdateStatus(true) })
	UpdateStatus(true)
	assert.False(t, UpdateStatus(true))
	assert.True(t, UpdateStatus(false))
	assert.False(t, IsRedisHealthy())
	assert.True(t, UpdateStatus(true))
}

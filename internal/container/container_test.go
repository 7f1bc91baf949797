package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/travel-approval/internal/config"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            18080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			Mode:            "test",
		},
		Database: config.DatabaseConfig{
			Path:         filepath.Join(t.TempDir(), "travel.db"),
			MaxOpenConns: 4,
		},
		Directory: config.DirectoryConfig{
			SeedPath: "../../configs/directory.yaml",
			CacheTTL: time.Minute,
		},
		Reports:   config.ReportsConfig{TopReasons: 5, SheetName: "Summary"},
		Reminders: config.RemindersConfig{Enabled: true, Interval: time.Hour, StaleAfter: 72 * time.Hour},
		Logger:    config.LoggerConfig{Level: "info", OutputPath: "stdout", Format: "json"},
	}
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)

	bad := testConfig(t)
	bad.Server.Port = 0
	_, err = NewContainer(bad, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, c.Ready())
	assert.False(t, c.Health().Overall)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start must fail")

	health := c.Health()
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["workers"].Healthy)
	assert.Equal(t, 1, c.Workers().Count())

	// seeded directory is reachable through the services
	dvcs, err := c.Services().Directory.ListUsers(ctx, entity.RoleDVC)
	require.NoError(t, err)
	assert.NotEmpty(t, dvcs)
	assert.NotNil(t, c.Server())

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.False(t, c.Workers().IsRunning())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(ctx))
}

func TestContainer_StartFailsOnMissingSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Directory.SeedPath = filepath.Join(t.TempDir(), "missing.yaml")

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))
	assert.False(t, c.Ready())
}

func TestContainer_RunRequiresStart(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, c.Run(context.Background()))
}

func TestConvertToZapFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	adapter := &zapLoggerAdapter{logger: zap.New(core)}

	adapter.Info("advanced", "request_id", "r1", 42, "dropped", "error", errors.New("boom"), "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "r1", fields["request_id"])
	assert.Equal(t, "boom", fields["error"])
	assert.Len(t, fields, 2)
}

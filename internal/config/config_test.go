package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/travel-test.db
reports:
  top_reasons: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, "/tmp/travel-test.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Reports.TopReasons)
	assert.Equal(t, "Summary", cfg.Reports.SheetName)
	assert.Equal(t, "configs/directory.yaml", cfg.Directory.SeedPath)
	assert.Equal(t, 5*time.Minute, cfg.Directory.CacheTTL)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.Reminders.Enabled)
	assert.Equal(t, 72*time.Hour, cfg.Reminders.StaleAfter)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("PORT", "7070")
	t.Setenv("TRAVEL_DIRECTORY_SEED_PATH", "/etc/travel/directory.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/etc/travel/directory.yaml", cfg.Directory.SeedPath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080, Mode: "release"},
			Database:  DatabaseConfig{Path: "data/travel.db"},
			Directory: DirectoryConfig{SeedPath: "configs/directory.yaml", CacheTTL: time.Minute},
			Reports:   ReportsConfig{TopReasons: 5, SheetName: "Summary"},
			Logger:    LoggerConfig{Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "bad mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: "server.mode"},
		{name: "no database", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "no seed", mutate: func(c *Config) { c.Directory.SeedPath = "" }, wantErr: "directory.seed_path"},
		{name: "zero ttl", mutate: func(c *Config) { c.Directory.CacheTTL = 0 }, wantErr: "directory.cache_ttl"},
		{name: "no top reasons", mutate: func(c *Config) { c.Reports.TopReasons = 0 }, wantErr: "reports.top_reasons"},
		{name: "reminders off ignores interval", mutate: func(c *Config) { c.Reminders = RemindersConfig{Enabled: false} }},
		{name: "reminders without interval", mutate: func(c *Config) { c.Reminders = RemindersConfig{Enabled: true, StaleAfter: time.Hour} }, wantErr: "reminders.interval"},
		{name: "negative batch", mutate: func(c *Config) { c.Reminders = RemindersConfig{Enabled: true, Interval: time.Minute, StaleAfter: time.Hour, BatchSize: -1} }, wantErr: "reminders.batch_size"},
		{name: "bad log format", mutate: func(c *Config) { c.Logger.Format = "xml" }, wantErr: "logger.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

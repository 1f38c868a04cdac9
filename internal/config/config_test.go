package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Moderation.SchedulerInterval)
	assert.Equal(t, 5, cfg.Moderation.TestBanSentinel)
	assert.Equal(t, 5*time.Second, cfg.Moderation.TestBanDuration)
	assert.False(t, cfg.Moderation.TestBansEnabled)
	assert.True(t, cfg.Moderation.NotifyOnAutoUnban)
	assert.Equal(t, 500, cfg.Moderation.MaxReasonLength)
	assert.False(t, cfg.Mail.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9999
moderation:
  scheduler_interval: 1m
  test_bans_enabled: true
  test_ban_duration: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OVERFLOW_MODERATION_BATCH_SIZE", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Moderation.SchedulerInterval)
	assert.True(t, cfg.Moderation.TestBansEnabled)
	assert.Equal(t, 3*time.Second, cfg.Moderation.TestBanDuration)
	assert.Equal(t, 42, cfg.Moderation.BatchSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			Logging:  LoggingConfig{Level: "info"},
			Moderation: ModerationConfig{
				SchedulerInterval: time.Second,
				BatchSize:         10,
				MaxReasonLength:   500,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mongo" }, wantErr: true},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.Moderation.SchedulerInterval = 0 }, wantErr: true},
		{name: "test bans without duration", mutate: func(c *Config) {
			c.Moderation.TestBansEnabled = true
			c.Moderation.TestBanSentinel = 5
		}, wantErr: true},
		{name: "mail without host", mutate: func(c *Config) {
			c.Mail.Enabled = true
			c.Mail.From = "a@b.c"
		}, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

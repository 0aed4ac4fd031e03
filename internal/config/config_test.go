package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigWithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SKILLTRACK_STORAGE_BACKUP_TYPE", "none")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data/user_progress.json", cfg.Storage.DocumentPath)
	assert.Equal(t, BackupNone, cfg.Storage.BackupType)
	assert.Equal(t, time.Duration(0), cfg.Ledger.OpenAttemptTTL)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: "9090"
  mode: "debug"
storage:
  backend: "file"
  document_path: "/tmp/progress.json"
  backup_type: "none"
ledger:
  open_attempt_ttl: 2h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("SKILLTRACK_SERVER_PORT", "7070")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "/tmp/progress.json", cfg.Storage.DocumentPath)
	assert.Equal(t, 2*time.Hour, cfg.Ledger.OpenAttemptTTL)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  backend: sqlite\n"), 0o644))

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage:  StorageConfig{Backend: BackendFile, DocumentPath: "p.json", BackupType: BackupNone},
			Database: DatabaseConfig{Port: 3306},
			Redis:    RedisConfig{Port: 6379},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad backup type", func(c *Config) { c.Storage.BackupType = "s3" }, true},
		{"missing document path", func(c *Config) { c.Storage.DocumentPath = "" }, true},
		{"mysql ignores document path", func(c *Config) { c.Storage.Backend = BackendMySQL; c.Storage.DocumentPath = "" }, false},
		{"negative ttl", func(c *Config) { c.Ledger.OpenAttemptTTL = -time.Second }, true},
		{"zero port", func(c *Config) { c.Redis.Port = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

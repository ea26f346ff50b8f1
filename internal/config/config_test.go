package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Reconcile.Interval)
	assert.Empty(t, cfg.Events.Brokers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "splitwiser.yaml")
	yaml := `
server:
  port: 9090
storage:
  driver: postgres
  dsn: postgres://localhost/splitwiser
events:
  brokers: ["kafka-1:9092"]
reconcile:
  interval: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("SPLITWISER_SERVER_PORT", "7070")
	t.Setenv("SPLITWISER_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SPLITWISER_LOGGING_FORMAT", "json")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env overrides the file")
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/splitwiser", cfg.Storage.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Events.Brokers)
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SPLITWISER_STORAGE_DRIVER", "mysql")
	_, err := Load(viper.New(), "")
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

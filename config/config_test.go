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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndDurations(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "secret"
  token_ttl_minutes: 15
seeder:
  timeout_seconds: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 3*time.Second, cfg.Seeder.Timeout)
	assert.Equal(t, 100, cfg.Seeder.PageSize)
	assert.Equal(t, "11", cfg.Seeder.ZCode)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.Push.Enabled())
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "from-file"
database:
  driver: postgres
  dsn: "file-dsn"
`)
	t.Setenv("EVCHARGING_AUTH_JWT_SECRET", "from-env")
	t.Setenv("EVCHARGING_DATABASE_DRIVER", "sqlite")
	t.Setenv("EVCHARGING_SERVER_PORT", "9090")
	t.Setenv("EVCHARGING_SEEDER_ENABLED", "true")
	t.Setenv("EVCHARGING_AUTH_BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("EVCHARGING_SERVER_TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file-dsn", cfg.Database.DSN)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Seeder.Enabled)
	assert.Equal(t, "root@example.com", cfg.Auth.BootstrapAdmin.Email)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.Server.TrustedProxies)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("EVCHARGING_AUTH_JWT_SECRET", "env-only")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.Auth.JWTSecret)
}

func TestLoad_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1234\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: s\n")
	t.Setenv("EVCHARGING_SERVER_PORT", "not-a-number")

	_, err := Load(path)
	assert.Error(t, err)
}

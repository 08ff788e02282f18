package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.GetServerAddr())
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Uploads.StagedTTL)
	assert.Equal(t, "@hourly", cfg.Uploads.SweepSchedule)
	assert.False(t, cfg.Notifications.Enabled)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9000},
		"database": {"host": "db.internal", "db_name": "rentsafe_test", "user": "app", "password": "pw", "ssl_mode": "require"},
		"storage": {"driver": "memory", "bucket": "docs"},
		"security": {"jwt_secret": "from-file"}
	}`), 0o600))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("NOTIFY_FROM", "no-reply@rentsafe.my")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "docs", cfg.Storage.Bucket)
	assert.Equal(t, "from-file", cfg.Security.JWTSecret)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "no-reply@rentsafe.my", cfg.Notifications.FromAddress)
	assert.Equal(t, "postgres://app:pw@db.internal:5432/rentsafe_test?sslmode=require", cfg.Database.GetDatabaseURL())
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "jwt secret")
	})

	t.Run("bad driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("STORAGE_DRIVER", "ftp")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "unknown storage driver")
	})

	t.Run("bad json", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

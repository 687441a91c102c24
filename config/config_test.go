package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "UPSTREAM_TIMEOUT", "SESSION_TTL", "CORS_ALLOW_ORIGINS", "INVOICE_SIGNING_KEY", "REDIS_DB"} {
		t.Setenv(k, "")
	}
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MUSA_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "s3cret", cfg.InvoiceSigningKey)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MUSA_CONFIG", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "musa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
api_base_url: http://backend:5000/api/
upstream_timeout: 3s
redis_db: 2
cors_allow_origins: [https://shop.example]
`), 0o600))

	t.Setenv("MUSA_CONFIG", path)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9100")
	t.Setenv("REDIS_DB", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("UPSTREAM_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "http://backend:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []string{"https://shop.example"}, cfg.CORSAllowOrigins)
}

func TestBadRedisDB(t *testing.T) {
	t.Setenv("MUSA_CONFIG", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "two")
	_, err := Load()
	assert.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b "))
	assert.Equal(t, []string{"*"}, splitCSV(" , "))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"RUN_ADDRESS", "LOG_LEVEL", "DATABASE_URI", "PRODUCTS_API_URL", "PRODUCTS_LENGTH", "PRODUCTS_TTL", "FETCH_TIMEOUT", "DATA_DIR", "LOG_CONSOLE"} {
		t.Setenv(k, "")
	}

	o := NewOptions()
	require.NoError(t, o.parse("storefront", nil))

	assert.Equal(t, ":8080", o.RunAddr())
	assert.Equal(t, "info", o.LogLevel())
	assert.False(t, o.LogConsole())
	assert.Empty(t, o.DataBaseDSN())
	assert.Equal(t, defaultProductsAPI, o.ProductsAPIURL())
	assert.Equal(t, 50, o.ProductsLength())
	assert.Equal(t, 5*time.Minute, o.ProductsTTL())
	assert.Equal(t, 10*time.Second, o.FetchTimeout())
	assert.Equal(t, "./data", o.DataDir())
}

func TestEnvAndFlags(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":9000")
	t.Setenv("PRODUCTS_LENGTH", "120")
	t.Setenv("PRODUCTS_TTL", "30s")
	t.Setenv("LOG_CONSOLE", "true")
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")

	o := NewOptions()
	require.NoError(t, o.parse("storefront", []string{"-a", ":7000", "--products-api", "http://localhost:3000", "-d", "postgres://x"}))

	assert.Equal(t, ":7000", o.RunAddr(), "flag wins over env")
	assert.Equal(t, 120, o.ProductsLength())
	assert.Equal(t, 30*time.Second, o.ProductsTTL())
	assert.True(t, o.LogConsole())
	assert.Equal(t, 10*time.Second, o.FetchTimeout(), "bad env value falls back to default")
	assert.Equal(t, "http://localhost:3000", o.ProductsAPIURL())
	assert.Equal(t, "postgres://x", o.DataBaseDSN())
}

func TestUnknownFlag(t *testing.T) {
	o := NewOptions()
	assert.Error(t, o.parse("storefront", []string{"--nope"}))
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATA_DIR=/from/dotenv\n"), 0o644))

	t.Setenv("DATA_DIR", "/from/env")
	require.NoError(t, godotenv.Load(path))

	o := NewOptions()
	require.NoError(t, o.parse("storefront", nil))
	assert.Equal(t, "/from/env", o.DataDir())
}

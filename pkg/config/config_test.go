package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "sealed", cfg.TokenScheme)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxBodyBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.UsingDevSecret())
}

func TestLoad_SecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SECRET_KEY", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UsingDevSecret())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("TOKEN_SCHEME", "jwt")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "jwt", cfg.TokenScheme)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":              "eighty",
		"MAX_BODY_BYTES":           "0",
		"STORE_BACKEND":            "mongo",
		"TOKEN_SCHEME":             "plain",
		"JANITOR_INTERVAL_MINUTES": "-1",
		"RATE_LIMIT_PER_MINUTE":    "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_NegativeRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-5")
	_, err := Load()
	assert.ErrorContains(t, err, "RATE_LIMIT_PER_MINUTE")
}

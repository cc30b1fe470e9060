package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvTest)
	t.Setenv("JWT_SECRET", "s3cret")
	for _, key := range []string{"PORT", "STORE_DRIVER", "TOKEN_TTL", "BCRYPT_COST", "REDIS_HOST", "CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.False(t, cfg.CacheEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvDevelopment)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.CacheEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	t.Setenv("APP_ENV", EnvTest)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "not-a-port")
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

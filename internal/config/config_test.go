package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/public.pem")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB", "accounts")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, "myapp", cfg.JWTIssuer)
	assert.Equal(t, 4*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, Policy{LoginRequiresActive: true}, cfg.Policy)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.Capacity)
	assert.Equal(t, "ip_route", cfg.RateLimit.KeyStrategy)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("POLICY_CONSUME_OTP_ON_SET", "true")
	t.Setenv("POLICY_LOGIN_REQUIRES_ACTIVE", "false")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1m")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.True(t, cfg.Policy.ConsumeOTPOnSet)
	assert.False(t, cfg.Policy.LoginRequiresActive)
	assert.Equal(t, 3, cfg.RateLimit.Capacity)
	assert.Equal(t, time.Minute, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.TTL, "ttl is at least five refill intervals")
	assert.Equal(t, "cache:6380", cfg.Redis.Address())
}

func TestLoadRequiredKeys(t *testing.T) {
	t.Run("port", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("APP_PORT", "")
		_, err := Load()
		assert.EqualError(t, err, "missing required env var: APP_PORT")
	})

	t.Run("mysql settings", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DB_DRIVER", "MySQL")
		t.Setenv("DB_USER", "app")
		t.Setenv("DB_HOST", "db")
		_, err := Load()
		assert.EqualError(t, err, "missing required env var: DB_NAME")
	})

	t.Run("unknown driver", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DB_DRIVER", "sqlite")
		_, err := Load()
		assert.ErrorContains(t, err, "invalid DB_DRIVER")
	})
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

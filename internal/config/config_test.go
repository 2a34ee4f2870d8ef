package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 5, cfg.LoginBurst)
	assert.Empty(t, cfg.TrustedProxies)
	assert.False(t, cfg.EmailEnabled())
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EVENTS_BROKER", "kafka")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.1")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EmailEnabled())
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.TrustedProxies)
}

func TestNewConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	base := Config{
		StorageDriver:   StorageMemory,
		JWTSecret:       "s",
		JWTTTL:          time.Hour,
		LoginRatePerSec: 1,
		LoginBurst:      1,
		StaleAfter:      time.Hour,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.StorageDriver = "sqlite"
	assert.Error(t, bad.Validate())

	bad = base
	bad.EventsBroker = "nats"
	assert.Error(t, bad.Validate())

	bad = base
	bad.TrustedProxies = []string{"proxy.internal"}
	assert.Error(t, bad.Validate())

	bad = base
	bad.StorageDriver = StoragePostgres
	bad.DBConn = ""
	assert.Error(t, bad.Validate())
}

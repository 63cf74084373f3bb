package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/config"
)

func base(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STORAGE_BACKEND", "DATABASE_URL", "REDIS_URL", "PROFILE_GRPC_PORT", "PROFILE_HTTP_PORT",
		"CONSUMER_GROUP", "CONSUMER_NAME", "MESSAGE_MAX_DELIVERIES", "PENDING_POST_TIMEOUT_MINUTES",
		"REGISTRY_URL", "BROKER_REGISTRY_APP", "BROKER_REFRESH_MINUTES", "CHANNELS_FILE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/profiles")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	base(t)
	t.Setenv("CONSUMER_NAME", "pod-1")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "50053", cfg.GRPCPort)
	assert.Equal(t, "8083", cfg.HTTPPort)
	assert.Equal(t, config.StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, "profile-service-group", cfg.ConsumerGroup)
	assert.Equal(t, "pod-1", cfg.ConsumerName)
	assert.Equal(t, int64(5), cfg.MaxDeliveries)
	assert.Equal(t, 30*time.Minute, cfg.PendingTimeout)
	assert.Equal(t, 5*time.Minute, cfg.BrokerRefresh)
	assert.Equal(t, "redis-registrar", cfg.RegistryApp)
	assert.Equal(t, "user-created", cfg.Channels.AccountCreated)
	assert.Equal(t, "company-profile.updates", cfg.Channels.ProfileSummary)
}

func TestLoadRequiredVars(t *testing.T) {
	base(t)
	t.Setenv("DATABASE_URL", "")
	_, err := config.Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORAGE_BACKEND", config.StorageMemory)
	_, err = config.Load()
	assert.NoError(t, err)

	t.Setenv("REDIS_URL", "")
	_, err = config.Load()
	assert.ErrorContains(t, err, "REDIS_URL")
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"STORAGE_BACKEND":              "mongo",
		"MESSAGE_MAX_DELIVERIES":       "0",
		"PENDING_POST_TIMEOUT_MINUTES": "soon",
		"BROKER_REFRESH_MINUTES":       "-1",
	} {
		t.Run(key, func(t *testing.T) {
			base(t)
			t.Setenv(key, val)
			_, err := config.Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestLoadChannelsFile(t *testing.T) {
	base(t)
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account_created: accounts.v2.created\nprofile_summary: profiles.public\n"), 0o600))
	t.Setenv("CHANNELS_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "accounts.v2.created", cfg.Channels.AccountCreated)
	assert.Equal(t, "profiles.public", cfg.Channels.ProfileSummary)
	assert.Equal(t, "user-deleted", cfg.Channels.AccountDeleted)
}

func TestLoadChannelsFileErrors(t *testing.T) {
	base(t)
	t.Setenv("CHANNELS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.Load()
	assert.ErrorContains(t, err, "CHANNELS_FILE")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account_created: [unclosed"), 0o600))
	t.Setenv("CHANNELS_FILE", path)
	_, err = config.Load()
	assert.ErrorContains(t, err, "CHANNELS_FILE")
}

func TestLoadRejectsSharedInboundChannel(t *testing.T) {
	base(t)
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("payment_completed: user-created\n"), 0o600))
	t.Setenv("CHANNELS_FILE", path)

	_, err := config.Load()
	assert.ErrorContains(t, err, "CHANNELS_FILE")
	assert.ErrorContains(t, err, "user-created")
}

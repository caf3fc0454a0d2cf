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
	t.Setenv("STORAGE", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RETRY_BACKOFF", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KAFKA_BROKERS=k1:9092, k2:9092\nLOCK_TTL=10s\n"), 0o600))
	t.Setenv("STORAGE", "memory")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LOCK_TTL", "")
	// godotenv does not override variables that exist, even when empty.
	require.NoError(t, os.Unsetenv("KAFKA_BROKERS"))
	require.NoError(t, os.Unsetenv("LOCK_TTL"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoadRejectsBadBackoff(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("RETRY_BACKOFF", "1s,soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "RETRY_BACKOFF")
}

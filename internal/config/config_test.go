package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/collector?sslmode=disable")
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_ORG", "acme")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "acme", cfg.GitHub.Org)
	assert.Equal(t, "test-token", cfg.GitHub.Token)
	assert.Equal(t, 3, cfg.GitHub.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.GitHub.Retry.InitialBackoff)
	assert.Equal(t, 5, cfg.Collection.RepoBatchSize)
	assert.Equal(t, 3, cfg.Collection.BranchBatchSize)
	assert.Equal(t, 10, cfg.Collection.DetailBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Collection.WindowDelay)
	assert.Equal(t, "commits.collected", cfg.RabbitMQQueue)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, 2*time.Hour, cfg.Collection.RunLockTTL)
}

func TestDefaultsMatchEnvironmentDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, *DefaultCollectionConfig(), cfg.Collection)
	assert.Equal(t, DefaultGitHubConfig().Retry, cfg.GitHub.Retry)
	assert.Equal(t, DefaultGitHubConfig().Timeout, cfg.GitHub.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COLLECTION_REPO_BATCH_SIZE", "2")
	t.Setenv("COLLECTION_WINDOW_DELAY", "0s")
	t.Setenv("COLLECTION_TIMEZONE", "Asia/Seoul")
	t.Setenv("GITHUB_RETRY_MAX_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Collection.RepoBatchSize)
	assert.Equal(t, time.Duration(0), cfg.Collection.WindowDelay)
	assert.Equal(t, 5, cfg.GitHub.Retry.MaxRetries)

	loc, err := cfg.Collection.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())
}

func TestLoadMissingToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GITHUB_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsZeroBatch(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COLLECTION_DETAIL_BATCH_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownZone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COLLECTION_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

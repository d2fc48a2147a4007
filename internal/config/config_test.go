package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStorageConfig_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("JOBMONGO_MONGO_URI", "mongodb://localhost:27017")

	cfg, err := LoadStorageConfig()
	require.NoError(t, err)

	assert.Equal(t, "hangfire", cfg.Prefix)
	assert.Equal(t, 15*time.Second, cfg.QueuePollInterval)
	assert.Equal(t, 30*time.Minute, cfg.InvisibilityTimeout)
	assert.Equal(t, 30*time.Second, cfg.DistributedLockLifetime)
	assert.NotEmpty(t, cfg.ClientID)
}

func TestLoadStorageConfig_Overrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("JOBMONGO_MONGO_URI", "mongodb://localhost:27017")
	os.Setenv("JOBMONGO_PREFIX", "myapp")
	os.Setenv("JOBMONGO_CLIENT_ID", "fixed-id")
	os.Setenv("JOBMONGO_QUEUE_POLL_INTERVAL", "5s")

	cfg, err := LoadStorageConfig()
	require.NoError(t, err)

	assert.Equal(t, "myapp", cfg.Prefix)
	assert.Equal(t, "fixed-id", cfg.ClientID)
	assert.Equal(t, 5*time.Second, cfg.QueuePollInterval)
}

func TestLoadStorageConfig_MissingURI(t *testing.T) {
	os.Clearenv()

	_, err := LoadStorageConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JOBMONGO_MONGO_URI")
}

func TestLoadStorageConfig_RejectsNonPositiveTimeouts(t *testing.T) {
	os.Clearenv()
	os.Setenv("JOBMONGO_MONGO_URI", "mongodb://localhost:27017")
	os.Setenv("JOBMONGO_INVISIBILITY_TIMEOUT", "0s")

	_, err := LoadStorageConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JOBMONGO_INVISIBILITY_TIMEOUT")
}

func TestLoadWorkerConfig_ParsesQueueList(t *testing.T) {
	os.Clearenv()
	os.Setenv("JOBMONGO_MONGO_URI", "mongodb://localhost:27017")
	os.Setenv("JOBMONGO_WORKER_QUEUES", "critical, default ,batch")

	cfg, err := LoadWorkerConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"critical", "default", "batch"}, cfg.Queues)
	assert.NotEmpty(t, cfg.Storage.ClientID)
}

// Package config loads the jobmongo storage core's runtime options from
// the environment (JOBMONGO_-prefixed variables), starting from package
// defaults for any variable left unset.
package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/jobmongo/internal/env"
)

// StorageConfig holds the options that govern the storage core: the
// Mongo connection string, the collection-name prefix, and the
// timing knobs for queue polling, invisibility, and lock lifetime.
type StorageConfig struct {
	// MongoURI is the connection string for the target MongoDB-compatible
	// deployment, e.g. "mongodb://localhost:27017".
	MongoURI string `env:"JOBMONGO_MONGO_URI"`

	// Prefix names the collections this core owns, e.g. "<prefix>.job".
	Prefix string `env:"JOBMONGO_PREFIX"`

	// QueuePollInterval is the wake period a blocked Dequeue falls back
	// to when no queue-changed pulse arrives.
	QueuePollInterval time.Duration `env:"JOBMONGO_QUEUE_POLL_INTERVAL"`

	// InvisibilityTimeout is how long a fetched job stays hidden from
	// other dequeuers before it is considered abandoned.
	InvisibilityTimeout time.Duration `env:"JOBMONGO_INVISIBILITY_TIMEOUT"`

	// DistributedLockLifetime is the lock document's TTL; its holder's
	// heartbeat runs at one fifth of this interval.
	DistributedLockLifetime time.Duration `env:"JOBMONGO_LOCK_LIFETIME"`

	// ClientID identifies this process instance for diagnostics. Left
	// empty, a fresh one is generated at Load time.
	ClientID string `env:"JOBMONGO_CLIENT_ID"`
}

// Validate enforces the positivity constraints the storage core requires
// of its timing options; see domain.ErrInvalidArgument for the errors
// raised at the call boundary if these are violated at runtime instead.
func (c *StorageConfig) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("JOBMONGO_MONGO_URI is required")
	}
	if c.Prefix == "" {
		return fmt.Errorf("JOBMONGO_PREFIX must not be empty")
	}
	if c.QueuePollInterval <= 0 {
		return fmt.Errorf("JOBMONGO_QUEUE_POLL_INTERVAL must be > 0")
	}
	if c.InvisibilityTimeout <= 0 {
		return fmt.Errorf("JOBMONGO_INVISIBILITY_TIMEOUT must be > 0")
	}
	if c.DistributedLockLifetime <= 0 {
		return fmt.Errorf("JOBMONGO_LOCK_LIFETIME must be > 0")
	}
	return nil
}

// defaultStorageConfig returns the defaults applied to unset variables;
// both LoadStorageConfig and LoadWorkerConfig start from this.
func defaultStorageConfig() StorageConfig {
	return StorageConfig{
		Prefix:                  "hangfire",
		QueuePollInterval:       15 * time.Second,
		InvisibilityTimeout:     30 * time.Minute,
		DistributedLockLifetime: 30 * time.Second,
	}
}

// LoadStorageConfig loads StorageConfig from the environment, filling in
// the package defaults first so unset variables keep those defaults.
func LoadStorageConfig() (*StorageConfig, error) {
	cfg := defaultStorageConfig()

	if err := env.Load(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	ensureClientID(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ensureClientID generates a random client id when none was supplied via
// the environment.
func ensureClientID(c *StorageConfig) {
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
}

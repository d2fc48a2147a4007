package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/jobmongo/internal/env"
)

// WorkerConfig holds configuration for the cmd/worker demo binary: which
// queues it serves and how often it runs its background work (server
// heartbeat, and counter aggregation under a distributed lock).
type WorkerConfig struct {
	Storage StorageConfig

	// QueuesCSV is a comma-separated queue-name list; Queues is its
	// parsed form, populated by LoadWorkerConfig.
	QueuesCSV         string        `env:"JOBMONGO_WORKER_QUEUES"`
	Queues            []string
	ServerHeartbeat   time.Duration `env:"JOBMONGO_WORKER_HEARTBEAT"`
	AggregationPeriod time.Duration `env:"JOBMONGO_WORKER_AGGREGATION_PERIOD"`
}

// LoadWorkerConfig loads and validates configuration for the worker demo
// binary from the environment.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{
		Storage:           defaultStorageConfig(),
		QueuesCSV:         "default",
		ServerHeartbeat:   15 * time.Second,
		AggregationPeriod: 1 * time.Minute,
	}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	ensureClientID(&cfg.Storage)
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}

	for _, q := range strings.Split(cfg.QueuesCSV, ",") {
		if q = strings.TrimSpace(q); q != "" {
			cfg.Queues = append(cfg.Queues, q)
		}
	}
	if len(cfg.Queues) == 0 {
		return nil, fmt.Errorf("JOBMONGO_WORKER_QUEUES must name at least one queue")
	}

	return cfg, nil
}

package config

import "github.com/rezkam/jobmongo/internal/env"

// ObservabilityConfig holds the ambient OTel switches used by the
// cmd/worker demo binary.
type ObservabilityConfig struct {
	OTelEnabled     bool   `env:"JOBMONGO_OTEL_ENABLED"`
	OTelServiceName string `env:"JOBMONGO_OTEL_SERVICE_NAME"`
}

// LoadObservabilityConfig loads ObservabilityConfig, defaulting to OTel
// disabled (stdout JSON logging only) unless explicitly turned on.
func LoadObservabilityConfig() (*ObservabilityConfig, error) {
	cfg := &ObservabilityConfig{
		OTelEnabled:     false,
		OTelServiceName: "jobmongo",
	}
	if err := env.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

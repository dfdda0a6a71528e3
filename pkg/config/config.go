// Package config holds the deployment configuration of connector bindings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// BindingConfig is the deployment configuration of one connector binding.
type BindingConfig struct {
	// Name is the binding name; it becomes the ConnectorID.
	Name string `json:"name"`

	// Type selects the connector implementation from the factory registry.
	Type string `json:"type"`

	// MaxWorkerThreads bounds the binding's worker pool.
	MaxWorkerThreads int `json:"max_worker_threads,omitempty"`

	// WorkerQueueSize is the pending-task buffer of the worker pool.
	WorkerQueueSize int `json:"worker_queue_size,omitempty"`

	// WorkerIdleTimeout retires idle worker threads.
	WorkerIdleTimeout time.Duration `json:"worker_idle_timeout,omitempty"`

	// MaxResultRows caps the rows one request may produce. Zero means
	// unlimited.
	MaxResultRows int `json:"max_result_rows,omitempty"`

	// ExceptionOnMaxRows makes exceeding MaxResultRows a hard error
	// instead of a silent truncation.
	ExceptionOnMaxRows bool `json:"exception_on_max_rows,omitempty"`

	// SynchronousWorkers runs each request start-to-finish on one worker
	// thread. When false, requests execute in cooperative steps.
	SynchronousWorkers bool `json:"synchronous_workers,omitempty"`

	// ConnectionPooling explicitly enables or disables connection pooling.
	// When absent the connector's own declared preference decides, and
	// absent that, pooling is disabled.
	ConnectionPooling *bool `json:"connection_pooling,omitempty"`

	// PoolMaxIdle caps the idle pooled connections kept per identity.
	PoolMaxIdle int `json:"pool_max_idle,omitempty"`

	// PoolConnLifetime retires pooled connections regardless of use.
	PoolConnLifetime time.Duration `json:"pool_conn_lifetime,omitempty"`

	// PoolConnIdleTimeout retires pooled connections idle for too long.
	PoolConnIdleTimeout time.Duration `json:"pool_conn_idle_timeout,omitempty"`

	// CapabilityOverrides force individual capability answers by method
	// name, e.g. {"SupportsOuterJoins": "true"}.
	CapabilityOverrides map[string]string `json:"capability_overrides,omitempty"`

	// Options are connector-specific settings passed through verbatim.
	Options map[string]interface{} `json:"options,omitempty"`
}

// Validate checks the required fields and applies defaults.
func (c *BindingConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("binding config: name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("binding config %s: connector type is required", c.Name)
	}
	if c.MaxWorkerThreads <= 0 {
		c.MaxWorkerThreads = 4
	}
	if c.WorkerQueueSize <= 0 {
		c.WorkerQueueSize = 256
	}
	if c.WorkerIdleTimeout <= 0 {
		c.WorkerIdleTimeout = 30 * time.Second
	}
	if c.MaxResultRows < 0 {
		return fmt.Errorf("binding config %s: max_result_rows must not be negative", c.Name)
	}
	return nil
}

// Config is the deployment file: a set of connector bindings.
type Config struct {
	Bindings []BindingConfig `json:"bindings"`
}

// LoadConfig reads and validates a deployment file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for i := range cfg.Bindings {
		if err := cfg.Bindings[i].Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

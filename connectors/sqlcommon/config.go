// Package sqlcommon is the shared database/sql connector that the MySQL,
// PostgreSQL, and SQLite connectors build on. Engine-specific behavior
// lives in the Dialect.
package sqlcommon

import (
	"encoding/json"
	"fmt"
)

// Config holds shared SQL connector configuration, parsed from binding
// options.
type Config struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`

	// File is the database path for file-backed engines (SQLite).
	File string `json:"file,omitempty"`

	// Connection pool (database/sql level)
	MaxOpenConns    int `json:"max_open_conns,omitempty"`
	MaxIdleConns    int `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime int `json:"conn_max_lifetime,omitempty"`  // seconds
	ConnMaxIdleTime int `json:"conn_max_idle_time,omitempty"` // seconds

	// MySQL-specific
	Charset   string `json:"charset,omitempty"`
	ParseTime *bool  `json:"parse_time,omitempty"`

	// PostgreSQL-specific
	SSLMode string `json:"ssl_mode,omitempty"`

	// General
	ConnectTimeout int `json:"connect_timeout,omitempty"` // seconds
}

// ParseConfig extracts a Config from binding options and applies defaults.
func ParseConfig(options map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	if options != nil {
		data, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse sql connector options: %w", err)
		}
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 300
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 60
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10
	}
	if cfg.Charset == "" {
		cfg.Charset = "utf8mb4"
	}
	if cfg.ParseTime == nil {
		t := true
		cfg.ParseTime = &t
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg, nil
}

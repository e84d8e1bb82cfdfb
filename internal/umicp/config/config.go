// Package config loads and validates the protocol's YAML configuration,
// following internal/config/config.go's Load-then-default-then-validate
// shape (read file, yaml.Unmarshal, fill zero-valued fields with defaults,
// reject out-of-range values with a wrapped error).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
)

// Config is the UMICP protocol orchestrator's tunable configuration
// (spec §2/§12).
type Config struct {
	Version              string `yaml:"version"`
	MaxMessageSize        int    `yaml:"max_message_size"`
	ConnectionTimeoutMs   int    `yaml:"connection_timeout_ms"`
	HeartbeatIntervalMs   int    `yaml:"heartbeat_interval_ms"`
	PreferredFormat      string `yaml:"preferred_format"`
	CompressionThreshold int    `yaml:"compression_threshold"`
	CompressionAlgorithm string `yaml:"compression_algorithm"`
	LoadBalancingStrategy string `yaml:"load_balancing_strategy"`
	FailoverEnabled       bool   `yaml:"failover_enabled"`
	FailoverBackoffMs     int    `yaml:"failover_backoff_ms"`
	MaxFragmentSize       int    `yaml:"max_fragment_size"`
	RequireEncryption     bool   `yaml:"require_encryption"`
}

// Default returns a Config with every field set to its documented default.
func Default() *Config {
	return &Config{
		Version:               "1.0",
		MaxMessageSize:        16 * 1024 * 1024,
		ConnectionTimeoutMs:   5000,
		HeartbeatIntervalMs:   30000,
		PreferredFormat:       "CBOR",
		CompressionThreshold:  1024,
		CompressionAlgorithm:  "NONE",
		LoadBalancingStrategy: "ROUND_ROBIN",
		FailoverEnabled:       true,
		FailoverBackoffMs:     1000,
		MaxFragmentSize:       64 * 1024,
	}
}

// Load reads filename as YAML, applies defaults for zero-valued fields, and
// validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills any field left at its YAML zero value after
// unmarshalling, the same way internal/config/config.go backfills Support/
// Broker ports after Load.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = d.MaxMessageSize
	}
	if cfg.ConnectionTimeoutMs == 0 {
		cfg.ConnectionTimeoutMs = d.ConnectionTimeoutMs
	}
	if cfg.HeartbeatIntervalMs == 0 {
		cfg.HeartbeatIntervalMs = d.HeartbeatIntervalMs
	}
	if cfg.PreferredFormat == "" {
		cfg.PreferredFormat = d.PreferredFormat
	}
	if cfg.CompressionThreshold == 0 {
		cfg.CompressionThreshold = d.CompressionThreshold
	}
	if cfg.CompressionAlgorithm == "" {
		cfg.CompressionAlgorithm = d.CompressionAlgorithm
	}
	if cfg.LoadBalancingStrategy == "" {
		cfg.LoadBalancingStrategy = d.LoadBalancingStrategy
	}
	if cfg.FailoverBackoffMs == 0 {
		cfg.FailoverBackoffMs = d.FailoverBackoffMs
	}
	if cfg.MaxFragmentSize == 0 {
		cfg.MaxFragmentSize = d.MaxFragmentSize
	}
}

// Validate enforces the invariants spec §2/§12 place on configuration.
func (c *Config) Validate() error {
	if c.Version != "1.0" && c.Version != "1.1" {
		return errs.Field(errs.InvalidArgument, "version", "must be \"1.0\" or \"1.1\"")
	}
	if c.MaxMessageSize <= 0 {
		return errs.Field(errs.InvalidArgument, "max_message_size", "must be positive")
	}
	if c.ConnectionTimeoutMs <= 0 {
		return errs.Field(errs.InvalidArgument, "connection_timeout_ms", "must be positive")
	}
	if c.HeartbeatIntervalMs <= 0 {
		return errs.Field(errs.InvalidArgument, "heartbeat_interval_ms", "must be positive")
	}
	if c.CompressionThreshold > c.MaxMessageSize {
		return errs.Field(errs.InvalidArgument, "compression_threshold", "must not exceed max_message_size")
	}
	switch c.PreferredFormat {
	case "JSON", "CBOR", "MSGPACK":
	default:
		return errs.Field(errs.InvalidArgument, "preferred_format", "must be one of JSON|CBOR|MSGPACK")
	}
	switch c.LoadBalancingStrategy {
	case "ROUND_ROBIN", "LEAST_CONNECTIONS", "RANDOM", "WEIGHTED":
	default:
		return errs.Field(errs.InvalidArgument, "load_balancing_strategy", "unrecognised strategy")
	}
	if c.MaxFragmentSize <= 0 {
		return errs.Field(errs.InvalidArgument, "max_fragment_size", "must be positive")
	}
	return nil
}

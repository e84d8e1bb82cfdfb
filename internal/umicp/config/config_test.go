package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadVersion(t *testing.T) {
	cfg := Default()
	cfg.Version = "2.0"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unsupported version")
	}
}

func TestValidateRejectsNonPositiveFields(t *testing.T) {
	cfg := Default()
	cfg.MaxMessageSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for max_message_size = 0")
	}

	cfg = Default()
	cfg.ConnectionTimeoutMs = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a negative connection_timeout_ms")
	}
}

func TestValidateRejectsCompressionThresholdAboveMax(t *testing.T) {
	cfg := Default()
	cfg.MaxMessageSize = 100
	cfg.CompressionThreshold = 200
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when compression_threshold exceeds max_message_size")
	}
}

func TestValidateRejectsUnknownLoadBalancingStrategy(t *testing.T) {
	cfg := Default()
	cfg.LoadBalancingStrategy = "LEAST_LATENCY"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognised load balancing strategy")
	}
}

func TestValidateRejectsUnknownPreferredFormat(t *testing.T) {
	cfg := Default()
	cfg.PreferredFormat = "XML"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognised preferred_format")
	}
}

func TestDefaultPreferredFormatIsCBOR(t *testing.T) {
	if got := Default().PreferredFormat; got != "CBOR" {
		t.Errorf("Default().PreferredFormat = %q, want CBOR", got)
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "umicp.yaml")
	if err := os.WriteFile(path, []byte("version: \"1.1\"\nmax_message_size: 2048\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != "1.1" {
		t.Errorf("Version = %q, want 1.1", cfg.Version)
	}
	if cfg.MaxMessageSize != 2048 {
		t.Errorf("MaxMessageSize = %d, want 2048", cfg.MaxMessageSize)
	}
	if cfg.HeartbeatIntervalMs != Default().HeartbeatIntervalMs {
		t.Errorf("HeartbeatIntervalMs = %d, want default %d", cfg.HeartbeatIntervalMs, Default().HeartbeatIntervalMs)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}

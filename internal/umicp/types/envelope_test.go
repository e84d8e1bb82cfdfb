package types

import (
	"strings"
	"testing"
	"time"
)

func TestBuilderBuildAssignsDefaults(t *testing.T) {
	env, err := NewBuilder("alfa", "bravo", OpControl).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if env.MsgID == "" {
		t.Error("expected a generated msg_id")
	}
	if len(env.Timestamp) < 20 || !strings.HasSuffix(env.Timestamp, "Z") {
		t.Errorf("timestamp %q does not look like ISO-8601 UTC ms-precision", env.Timestamp)
	}
	if env.Version != ProtocolVersion {
		t.Errorf("Version = %q, want %q", env.Version, ProtocolVersion)
	}
}

func TestBuilderRejectsUnknownOp(t *testing.T) {
	_, err := NewBuilder("alfa", "bravo", Op("BOGUS")).Build()
	if err == nil {
		t.Fatal("expected an error for an unknown op")
	}
}

func TestBuilderRequiresFromAndTo(t *testing.T) {
	if _, err := NewBuilder("", "bravo", OpData).Build(); err == nil {
		t.Error("expected error for empty from")
	}
	if _, err := NewBuilder("alfa", "", OpData).Build(); err == nil {
		t.Error("expected error for empty to")
	}
}

func TestFormatTimestampLength(t *testing.T) {
	ts := FormatTimestamp(time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	if len(ts) < 20 {
		t.Errorf("timestamp %q shorter than 20 chars", ts)
	}
	if !strings.HasSuffix(ts, "Z") {
		t.Errorf("timestamp %q missing trailing Z", ts)
	}
}

func TestCloneDeepCopiesMutableFields(t *testing.T) {
	env, err := NewBuilder("alfa", "bravo", OpData).
		WithCapability("k", "v").
		WithAccept("application/json").
		WithPayloadHint(PayloadHint{Type: PayloadBinary, Encoding: EncodingUint8}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	clone := env.Clone()
	clone.Capabilities["k"] = "changed"
	clone.Accept[0] = "changed"
	clone.PayloadHint.Type = PayloadText

	if env.Capabilities["k"] != "v" {
		t.Error("mutating clone's Capabilities affected the original")
	}
	if env.Accept[0] != "application/json" {
		t.Error("mutating clone's Accept affected the original")
	}
	if env.PayloadHint.Type != PayloadBinary {
		t.Error("mutating clone's PayloadHint affected the original")
	}
}

func TestValidateRejectsShortTimestamp(t *testing.T) {
	env := Envelope{Version: ProtocolVersion, MsgID: "x", Timestamp: "2026", From: "a", To: "b", Op: OpData}
	if err := env.Validate(); err == nil {
		t.Error("expected error for too-short timestamp")
	}
}

// Package types holds the UMICP wire data model: the Envelope control-plane
// message and the Frame data-plane unit, plus their shared enums. It has no
// knowledge of JSON/CBOR/MessagePack encoding (that lives in codec) and no
// knowledge of transports or the orchestrator — just the value types and
// the invariants spec.md §3 attaches to them.
//
// Envelope instances are owned exclusively by the caller that builds them;
// mutation after Build is the caller's responsibility, same contract the
// teacher's envelope package documents for its own Envelope type.
package types

import (
	"time"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
)

// Op is the envelope's semantic operation (spec §3).
type Op string

const (
	OpControl Op = "CONTROL"
	OpData    Op = "DATA"
	OpAck     Op = "ACK"
	OpError   Op = "ERROR"
)

func (o Op) valid() bool {
	switch o {
	case OpControl, OpData, OpAck, OpError:
		return true
	}
	return false
}

// ProtocolVersion is the only envelope version this module accepts on
// build; Deserialize additionally accepts "1.1" per spec §4.7.1.
const ProtocolVersion = "1.0"

// PayloadRef points at a frame range in the data plane that a control-plane
// envelope is describing (spec §3).
type PayloadRef struct {
	StreamID uint64 `json:"stream_id" cbor:"stream_id" msgpack:"stream_id"`
	Offset   uint64 `json:"offset" cbor:"offset" msgpack:"offset"`
	Length   uint64 `json:"length" cbor:"length" msgpack:"length"`
	Checksum string `json:"checksum" cbor:"checksum" msgpack:"checksum"`
}

// Envelope is the control-plane message (spec §3). Field order matches the
// canonical JSON key order spec.md §4.1 mandates; codec's wireEnvelope,
// which codec.EnvelopeToJSON marshals, keeps the same field order.
type Envelope struct {
	Version      string            `json:"v"`
	MsgID        string            `json:"msg_id"`
	Timestamp    string            `json:"ts"`
	From         string            `json:"from"`
	To           string            `json:"to"`
	Op           Op                `json:"op"`
	Capabilities map[string]string `json:"capabilities,omitempty"`
	SchemaURI    string            `json:"schema_uri,omitempty"`
	Accept       []string          `json:"accept,omitempty"`
	PayloadHint  *PayloadHint      `json:"payload_hint,omitempty"`
	PayloadRefs  []PayloadRef      `json:"payload_refs,omitempty"`
}

// Builder constructs an Envelope, consuming itself into a validated value on
// Build — spec.md §9 calls for immutable-config builders rather than the
// teacher's in-place-mutable EnvelopeBuilder pattern.
type Builder struct {
	e Envelope
}

// NewBuilder starts a builder with the required fields populated.
func NewBuilder(from, to string, op Op) *Builder {
	return &Builder{e: Envelope{
		Version: ProtocolVersion,
		From:    from,
		To:      to,
		Op:      op,
	}}
}

// WithMsgID overrides the generated message id. Orchestrator callers leave
// this unset and let Build assign a fresh one; tests use it for determinism.
func (b *Builder) WithMsgID(id string) *Builder {
	b.e.MsgID = id
	return b
}

// WithTimestamp overrides the generated timestamp.
func (b *Builder) WithTimestamp(ts time.Time) *Builder {
	b.e.Timestamp = FormatTimestamp(ts)
	return b
}

func (b *Builder) WithCapability(key, value string) *Builder {
	if b.e.Capabilities == nil {
		b.e.Capabilities = make(map[string]string)
	}
	b.e.Capabilities[key] = value
	return b
}

func (b *Builder) WithSchemaURI(uri string) *Builder {
	b.e.SchemaURI = uri
	return b
}

func (b *Builder) WithAccept(accept ...string) *Builder {
	b.e.Accept = append(b.e.Accept, accept...)
	return b
}

func (b *Builder) WithPayloadHint(hint PayloadHint) *Builder {
	b.e.PayloadHint = &hint
	return b
}

func (b *Builder) WithPayloadRef(ref PayloadRef) *Builder {
	b.e.PayloadRefs = append(b.e.PayloadRefs, ref)
	return b
}

// Build validates and returns the finished Envelope. All validation happens
// here, not as the builder is populated.
func (b *Builder) Build() (*Envelope, error) {
	if b.e.MsgID == "" {
		b.e.MsgID = NewMessageID()
	}
	if b.e.Timestamp == "" {
		b.e.Timestamp = FormatTimestamp(time.Now().UTC())
	}
	env := b.e
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// FormatTimestamp renders t as the ISO-8601 UTC millisecond-precision
// timestamp spec.md §3 requires (length >= 20, trailing Z).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Validate applies the spec §3 invariants.
func (e *Envelope) Validate() error {
	if e.Version != ProtocolVersion && e.Version != "1.1" {
		return errs.Field(errs.InvalidEnvelope, "version", "unsupported protocol version")
	}
	if e.MsgID == "" {
		return errs.Field(errs.InvalidEnvelope, "msg_id", "required")
	}
	if len(e.Timestamp) < 20 {
		return errs.Field(errs.InvalidEnvelope, "ts", "must be ISO-8601 UTC with millisecond precision")
	}
	if e.From == "" {
		return errs.Field(errs.InvalidEnvelope, "from", "required")
	}
	if e.To == "" {
		return errs.Field(errs.InvalidEnvelope, "to", "required")
	}
	if !e.Op.valid() {
		return errs.Field(errs.InvalidEnvelope, "op", "must be one of CONTROL|DATA|ACK|ERROR")
	}
	if e.PayloadHint != nil {
		if err := e.PayloadHint.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate a derived envelope (e.g. a
// reply) without aliasing the original's maps/slices.
func (e *Envelope) Clone() *Envelope {
	clone := *e
	if e.Capabilities != nil {
		clone.Capabilities = make(map[string]string, len(e.Capabilities))
		for k, v := range e.Capabilities {
			clone.Capabilities[k] = v
		}
	}
	if e.Accept != nil {
		clone.Accept = append([]string(nil), e.Accept...)
	}
	if e.PayloadHint != nil {
		hint := *e.PayloadHint
		clone.PayloadHint = &hint
	}
	if e.PayloadRefs != nil {
		clone.PayloadRefs = append([]PayloadRef(nil), e.PayloadRefs...)
	}
	return &clone
}

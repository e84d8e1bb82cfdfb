// Package codec implements the wire encoders/decoders for Envelope (JSON,
// CBOR, MessagePack) and Frame (fixed binary layout), plus the hashing and
// base64 helpers spec.md §4.1/§4.2 call for. Package types owns the value
// model; this package owns turning it into bytes and back.
package codec

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// wireEnvelope is the canonical on-the-wire shape: same field order as
// types.Envelope, but op/payload_hint enums rendered in the case spec.md
// §4.1 mandates (upper for op, lower for payload_hint.type/encoding).
type wireEnvelope struct {
	Version      string             `json:"v" cbor:"v" msgpack:"v"`
	MsgID        string             `json:"msg_id" cbor:"msg_id" msgpack:"msg_id"`
	Timestamp    string             `json:"ts" cbor:"ts" msgpack:"ts"`
	From         string             `json:"from" cbor:"from" msgpack:"from"`
	To           string             `json:"to" cbor:"to" msgpack:"to"`
	Op           string             `json:"op" cbor:"op" msgpack:"op"`
	Capabilities map[string]string  `json:"capabilities,omitempty" cbor:"capabilities,omitempty" msgpack:"capabilities,omitempty"`
	SchemaURI    string             `json:"schema_uri,omitempty" cbor:"schema_uri,omitempty" msgpack:"schema_uri,omitempty"`
	Accept       []string           `json:"accept,omitempty" cbor:"accept,omitempty" msgpack:"accept,omitempty"`
	PayloadHint  *wirePayloadHint   `json:"payload_hint,omitempty" cbor:"payload_hint,omitempty" msgpack:"payload_hint,omitempty"`
	PayloadRefs  []types.PayloadRef `json:"payload_refs,omitempty" cbor:"payload_refs,omitempty" msgpack:"payload_refs,omitempty"`
}

type wirePayloadHint struct {
	Type     string `json:"type" cbor:"type" msgpack:"type"`
	Size     uint64 `json:"size,omitempty" cbor:"size,omitempty" msgpack:"size,omitempty"`
	Encoding string `json:"encoding,omitempty" cbor:"encoding,omitempty" msgpack:"encoding,omitempty"`
	Count    uint64 `json:"count,omitempty" cbor:"count,omitempty" msgpack:"count,omitempty"`
}

func toWire(e *types.Envelope) wireEnvelope {
	w := wireEnvelope{
		Version:      e.Version,
		MsgID:        e.MsgID,
		Timestamp:    e.Timestamp,
		From:         e.From,
		To:           e.To,
		Op:           string(e.Op),
		Capabilities: e.Capabilities,
		SchemaURI:    e.SchemaURI,
		Accept:       e.Accept,
		PayloadRefs:  e.PayloadRefs,
	}
	if e.PayloadHint != nil {
		w.PayloadHint = &wirePayloadHint{
			Type:     strings.ToLower(string(e.PayloadHint.Type)),
			Size:     e.PayloadHint.Size,
			Encoding: strings.ToLower(string(e.PayloadHint.Encoding)),
			Count:    e.PayloadHint.Count,
		}
	}
	return w
}

func fromWire(w wireEnvelope) (*types.Envelope, error) {
	op := strings.ToUpper(w.Op)
	switch types.Op(op) {
	case types.OpControl, types.OpData, types.OpAck, types.OpError:
	default:
		return nil, errs.Field(errs.InvalidEnvelope, "op", "unknown operation "+w.Op)
	}

	e := &types.Envelope{
		Version:      w.Version,
		MsgID:        w.MsgID,
		Timestamp:    w.Timestamp,
		From:         w.From,
		To:           w.To,
		Op:           types.Op(op),
		Capabilities: w.Capabilities,
		SchemaURI:    w.SchemaURI,
		Accept:       w.Accept,
		PayloadRefs:  w.PayloadRefs,
	}
	if w.PayloadHint != nil {
		e.PayloadHint = &types.PayloadHint{
			Type:     types.PayloadType(strings.ToUpper(w.PayloadHint.Type)),
			Size:     w.PayloadHint.Size,
			Encoding: types.PayloadEncoding(strings.ToUpper(w.PayloadHint.Encoding)),
			Count:    w.PayloadHint.Count,
		}
	}
	return e, nil
}

// EnvelopeToJSON produces the canonical single-line JSON object for e.
func EnvelopeToJSON(e *types.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toWire(e)); err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, "envelope json encode failed", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EnvelopeFromJSON parses canonical envelope JSON. Unknown top-level keys
// are silently ignored by encoding/json, matching spec.md's "preserve only
// the documented optional set" rule. Malformed JSON and unknown op values
// each surface their own error code.
func EnvelopeFromJSON(data []byte) (*types.Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, "malformed envelope json", err)
	}
	e, err := fromWire(w)
	if err != nil {
		return nil, err
	}
	if e.MsgID == "" || e.From == "" || e.To == "" || e.Version == "" {
		return nil, errs.New(errs.InvalidEnvelope, "missing required field")
	}
	return e, nil
}

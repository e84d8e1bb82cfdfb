package types

import "github.com/hivellm/umicp-sub000/internal/umicp/errs"

// PayloadType classifies the application data a PayloadHint describes
// (spec §3).
type PayloadType string

const (
	PayloadVector   PayloadType = "VECTOR"
	PayloadText     PayloadType = "TEXT"
	PayloadMetadata PayloadType = "METADATA"
	PayloadBinary   PayloadType = "BINARY"
)

func (t PayloadType) valid() bool {
	switch t {
	case PayloadVector, PayloadText, PayloadMetadata, PayloadBinary:
		return true
	}
	return false
}

// PayloadEncoding is the scalar element encoding of a VECTOR payload.
type PayloadEncoding string

const (
	EncodingFloat32 PayloadEncoding = "FLOAT32"
	EncodingFloat64 PayloadEncoding = "FLOAT64"
	EncodingInt32   PayloadEncoding = "INT32"
	EncodingInt64   PayloadEncoding = "INT64"
	EncodingUint8   PayloadEncoding = "UINT8"
	EncodingUint16  PayloadEncoding = "UINT16"
	EncodingUint32  PayloadEncoding = "UINT32"
	EncodingUint64  PayloadEncoding = "UINT64"
)

func (e PayloadEncoding) valid() bool {
	switch e {
	case EncodingFloat32, EncodingFloat64, EncodingInt32, EncodingInt64,
		EncodingUint8, EncodingUint16, EncodingUint32, EncodingUint64:
		return true
	}
	return false
}

// PayloadHint describes the shape of a payload that travels either inline
// (as a data-plane frame) or by reference (PayloadRef).
type PayloadHint struct {
	Type     PayloadType     `json:"type"`
	Size     uint64          `json:"size,omitempty"`
	Encoding PayloadEncoding `json:"encoding,omitempty"`
	Count    uint64          `json:"count,omitempty"`
}

func (h *PayloadHint) Validate() error {
	if !h.Type.valid() {
		return errs.Field(errs.InvalidEnvelope, "payload_hint.type", "invalid payload type")
	}
	if h.Encoding != "" && !h.Encoding.valid() {
		return errs.Field(errs.InvalidEnvelope, "payload_hint.encoding", "invalid payload encoding")
	}
	return nil
}

// HintForBytes builds a hint of payloadType with UINT8 encoding for an
// opaque byte payload; the orchestrator's send pipeline calls it with
// BINARY for data messages without a caller-supplied hint (spec §4.7.6
// step 3).
func HintForBytes(payloadType PayloadType, data []byte) PayloadHint {
	return PayloadHint{
		Type:     payloadType,
		Size:     uint64(len(data)),
		Encoding: EncodingUint8,
		Count:    uint64(len(data)),
	}
}

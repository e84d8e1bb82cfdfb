package codec

import (
	"encoding/binary"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// Format selects which envelope wire codec a frame body was packed with
// (spec §6 preferred_format).
type Format uint8

const (
	FormatJSON Format = iota
	FormatCBOR
	FormatMsgPack
)

// FormatFromString maps a config.PreferredFormat string onto a Format,
// defaulting to CBOR per spec §6.
func FormatFromString(s string) (Format, error) {
	switch s {
	case "", "CBOR":
		return FormatCBOR, nil
	case "JSON":
		return FormatJSON, nil
	case "MSGPACK":
		return FormatMsgPack, nil
	default:
		return 0, errs.Field(errs.InvalidArgument, "preferred_format", "must be one of JSON|CBOR|MSGPACK")
	}
}

// EncodeEnvelope serializes e using format.
func EncodeEnvelope(e *types.Envelope, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return EnvelopeToJSON(e)
	case FormatCBOR:
		return EnvelopeToCBOR(e)
	case FormatMsgPack:
		return EnvelopeToMsgPack(e)
	default:
		return nil, errs.New(errs.InvalidArgument, "unknown envelope wire format")
	}
}

// DecodeEnvelope parses data as an envelope serialized with format.
func DecodeEnvelope(data []byte, format Format) (*types.Envelope, error) {
	switch format {
	case FormatJSON:
		return EnvelopeFromJSON(data)
	case FormatCBOR:
		return EnvelopeFromCBOR(data)
	case FormatMsgPack:
		return EnvelopeFromMsgPack(data)
	default:
		return nil, errs.New(errs.InvalidArgument, "unknown envelope wire format")
	}
}

// packHeaderSize is the 1-byte format tag plus the 4-byte little-endian
// envelope-length prefix that precedes the envelope bytes in a packed
// frame body.
const packHeaderSize = 5

// PackFrameBody concatenates a serialized envelope and its correlated
// payload into a single frame body (spec §4.7.6 step 6 / §4.7.7 step 2):
// format tag, envelope length, envelope bytes, then payload bytes. Packing
// both into one body keeps the control-plane envelope and its data-plane
// payload inside a single frame, so one logical send produces exactly one
// transport.Send call and one set of stats/failover bookkeeping.
func PackFrameBody(format Format, envelopeBytes, payload []byte) []byte {
	buf := make([]byte, packHeaderSize+len(envelopeBytes)+len(payload))
	buf[0] = byte(format)
	binary.LittleEndian.PutUint32(buf[1:packHeaderSize], uint32(len(envelopeBytes)))
	copy(buf[packHeaderSize:packHeaderSize+len(envelopeBytes)], envelopeBytes)
	copy(buf[packHeaderSize+len(envelopeBytes):], payload)
	return buf
}

// UnpackFrameBody splits a body produced by PackFrameBody back into its
// format tag, envelope bytes, and correlated payload bytes.
func UnpackFrameBody(body []byte) (format Format, envelopeBytes, payload []byte, err error) {
	if len(body) < packHeaderSize {
		return 0, nil, nil, errs.New(errs.InvalidFrame, "frame body shorter than pack header")
	}
	format = Format(body[0])
	envLen := binary.LittleEndian.Uint32(body[1:packHeaderSize])
	if uint32(len(body)-packHeaderSize) < envLen {
		return 0, nil, nil, errs.New(errs.InvalidFrame, "frame body shorter than declared envelope length")
	}
	envelopeBytes = body[packHeaderSize : packHeaderSize+envLen]
	payload = body[packHeaderSize+envLen:]
	return format, envelopeBytes, payload, nil
}

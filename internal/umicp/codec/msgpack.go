package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// EnvelopeToMsgPack encodes e as MessagePack, same key set and value domains
// as the JSON codec (spec §4.1).
func EnvelopeToMsgPack(e *types.Envelope) ([]byte, error) {
	data, err := msgpack.Marshal(toWire(e))
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, "envelope msgpack encode failed", err)
	}
	return data, nil
}

// EnvelopeFromMsgPack decodes a MessagePack-encoded envelope.
func EnvelopeFromMsgPack(data []byte) (*types.Envelope, error) {
	var w wireEnvelope
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, "malformed envelope msgpack", err)
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

package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

var cborEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err) // static options, can only fail at init time
	}
	return mode
}()

// EnvelopeToCBOR encodes e with CBOR's canonical (deterministic) encoding,
// the same key set and value domains as the JSON codec (spec §4.1).
func EnvelopeToCBOR(e *types.Envelope) ([]byte, error) {
	data, err := cborEncMode.Marshal(toWire(e))
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, "envelope cbor encode failed", err)
	}
	return data, nil
}

// EnvelopeFromCBOR decodes a CBOR-encoded envelope.
func EnvelopeFromCBOR(data []byte) (*types.Envelope, error) {
	var w wireEnvelope
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, "malformed envelope cbor", err)
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

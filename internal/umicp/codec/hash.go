package codec

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// EnvelopeHash returns the SHA-256 hex digest of e's canonical JSON
// serialization (spec §4.1). It is a content fingerprint only — callers
// must not rely on it for authentication, since it carries no key.
func EnvelopeHash(e *types.Envelope) (string, error) {
	data, err := EnvelopeToJSON(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Base64Encode/Base64Decode are standard-alphabet helpers for callers that
// need to carry binary data inside a JSON/CBOR/MsgPack text field. The
// envelope and frame codecs do not call them, and the send path writes
// PayloadRef.Checksum as hex.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

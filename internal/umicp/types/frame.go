package types

import "github.com/hivellm/umicp-sub000/internal/umicp/errs"

// FrameHeaderSize is the fixed little-endian header size in bytes (spec §3).
const FrameHeaderSize = 20

// FrameVersion is the only frame wire version this module accepts.
const FrameVersion uint8 = 1

// Flag is a bit position in the frame's 16-bit flags field (spec §3).
type Flag uint16

const (
	FlagCompressedGzip   Flag = 1 << 0
	FlagCompressedBrotli Flag = 1 << 1
	FlagEncryptedXChaCha Flag = 1 << 2
	FlagFragmentStart    Flag = 1 << 3
	FlagFragmentContinue Flag = 1 << 4
	FlagFragmentEnd      Flag = 1 << 5
	FlagStreamStart      Flag = 1 << 6
	FlagStreamEnd        Flag = 1 << 7
)

// compressedMask covers every COMPRESSED_* bit; at most one may be set
// (spec §3 invariant). The flag space has no distinct bit for ZLIB or LZ4,
// so the orchestrator's send path (frameForSend) sets FlagCompressedGzip for
// every non-NONE algorithm; the receiver decompresses with its own
// configured algorithm.
const compressedMask = FlagCompressedGzip | FlagCompressedBrotli

// Frame is the fixed-header data-plane unit (spec §3).
type Frame struct {
	Version  uint8
	Type     uint8
	Flags    Flag
	StreamID uint64
	Sequence uint32
	Payload  []byte
}

// NewFrame builds a frame with the mandatory version stamped.
func NewFrame(frameType uint8, streamID uint64, sequence uint32, payload []byte) *Frame {
	return &Frame{
		Version:  FrameVersion,
		Type:     frameType,
		StreamID: streamID,
		Sequence: sequence,
		Payload:  payload,
	}
}

func (f *Frame) HasFlag(flag Flag) bool { return f.Flags&flag != 0 }

func (f *Frame) IsCompressed() bool {
	return f.Flags&compressedMask != 0
}

func (f *Frame) IsEncrypted() bool {
	return f.HasFlag(FlagEncryptedXChaCha)
}

func (f *Frame) IsFragmented() bool {
	return f.HasFlag(FlagFragmentStart) || f.HasFlag(FlagFragmentContinue) || f.HasFlag(FlagFragmentEnd)
}

func (f *Frame) SetFlag(flag Flag)   { f.Flags |= flag }
func (f *Frame) ClearFlag(flag Flag) { f.Flags &^= flag }

// Validate applies the spec §3 frame invariants that are checkable without
// reference to the surrounding stream (sequence monotonicity and
// fragment-sequence-across-frames are the orchestrator's job, not a single
// frame's).
func (f *Frame) Validate() error {
	if f.Version != FrameVersion {
		return errs.New(errs.InvalidFrame, "unsupported frame version")
	}
	if bits(uint16(f.Flags&compressedMask)) > 1 {
		return errs.New(errs.InvalidFrame, "at most one COMPRESSED_* flag may be set")
	}
	return nil
}

func bits(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

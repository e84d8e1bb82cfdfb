package codec

import (
	"encoding/binary"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// FrameToBytes serializes f to the fixed 20-byte-header wire layout (spec
// §3/§4.2): version(1) type(1) flags(2) stream_id(8) sequence(4) length(4),
// little-endian, followed by the payload.
func FrameToBytes(f *types.Frame) ([]byte, error) {
	if f.Version != types.FrameVersion {
		return nil, errs.New(errs.InvalidFrame, "unsupported frame version")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, types.FrameHeaderSize+len(f.Payload))
	buf[0] = f.Version
	buf[1] = f.Type
	binary.LittleEndian.PutUint16(buf[2:4], uint16(f.Flags))
	binary.LittleEndian.PutUint64(buf[4:12], f.StreamID)
	binary.LittleEndian.PutUint32(buf[12:16], f.Sequence)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(f.Payload)))
	copy(buf[types.FrameHeaderSize:], f.Payload)
	return buf, nil
}

// FrameFromBytes parses a frame from the exact wire layout. The buffer must
// be exactly 20+length bytes; trailing bytes are rejected.
func FrameFromBytes(data []byte) (*types.Frame, error) {
	if len(data) < types.FrameHeaderSize {
		return nil, errs.New(errs.InvalidFrame, "buffer shorter than frame header")
	}

	f := &types.Frame{
		Version:  data[0],
		Type:     data[1],
		Flags:    types.Flag(binary.LittleEndian.Uint16(data[2:4])),
		StreamID: binary.LittleEndian.Uint64(data[4:12]),
		Sequence: binary.LittleEndian.Uint32(data[12:16]),
	}
	if f.Version != types.FrameVersion {
		return nil, errs.New(errs.InvalidFrame, "unsupported frame version")
	}

	length := binary.LittleEndian.Uint32(data[16:20])
	want := types.FrameHeaderSize + int(length)
	if len(data) != want {
		return nil, errs.New(errs.InvalidFrame, "buffer length does not match header length field")
	}

	f.Payload = append([]byte(nil), data[types.FrameHeaderSize:]...)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

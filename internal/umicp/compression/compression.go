// Package compression wraps klauspost/compress codecs behind a single
// Manager so the rest of the protocol stack never imports a codec package
// directly (spec §6). Grounded on the teacher's preference for a small
// manager type keyed by an enum (compare internal/broker/service.go's
// Connection/Topic registries keyed by a string id).
package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/lz4"
	"github.com/klauspost/compress/zlib"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
)

// Algorithm identifies a compression codec.
type Algorithm uint8

const (
	None Algorithm = iota
	Zlib
	Gzip
	LZ4
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "NONE"
	case Zlib:
		return "ZLIB"
	case Gzip:
		return "GZIP"
	case LZ4:
		return "LZ4"
	default:
		return "UNKNOWN"
	}
}

// Level mirrors the standard compress/flate level range; LZ4 ignores it
// beyond a fast/best split since klauspost/compress/lz4 has no per-level
// knob matching zlib/gzip's.
type Level int

const (
	DefaultLevel Level = -1
	BestSpeed    Level = 1
	BestSize     Level = 9
)

// Manager compresses and decompresses payloads for a fixed Algorithm.
// A zero-value-free Manager must be built with New.
type Manager struct {
	algo Algorithm
}

// New returns a Manager for algo. NONE is valid and makes Compress/
// Decompress a no-op passthrough.
func New(algo Algorithm) *Manager {
	return &Manager{algo: algo}
}

// Algorithm reports the codec this Manager was built with.
func (m *Manager) Algorithm() Algorithm {
	return m.algo
}

// Compress returns data compressed with the Manager's algorithm at level.
func (m *Manager) Compress(data []byte, level Level) ([]byte, error) {
	switch m.algo {
	case None:
		return append([]byte(nil), data...), nil
	case Zlib:
		return compressZlib(data, level)
	case Gzip:
		return compressGzip(data, level)
	case LZ4:
		return compressLZ4(data, level)
	default:
		return nil, errs.New(errs.NotImplemented, "unknown compression algorithm")
	}
}

// Decompress reverses Compress.
func (m *Manager) Decompress(data []byte) ([]byte, error) {
	switch m.algo {
	case None:
		return append([]byte(nil), data...), nil
	case Zlib:
		return decompressZlib(data)
	case Gzip:
		return decompressGzip(data)
	case LZ4:
		return decompressLZ4(data)
	default:
		return nil, errs.New(errs.NotImplemented, "unknown compression algorithm")
	}
}

// ShouldCompress is the policy helper from spec §6: only compress payloads
// at or above threshold bytes, since the codec framing overhead makes
// compressing tiny payloads counter-productive.
func ShouldCompress(payloadSize int, threshold int) bool {
	return payloadSize >= threshold
}

func compressZlib(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, int(level))
	if err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "zlib writer init failed", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "zlib write failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "zlib close failed", err)
	}
	return buf.Bytes(), nil
}

func decompressZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.DecompressionFailed, "zlib reader init failed", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.DecompressionFailed, "zlib read failed", err)
	}
	return out, nil
}

func compressGzip(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, int(level))
	if err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "gzip writer init failed", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "gzip write failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "gzip close failed", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.DecompressionFailed, "gzip reader init failed", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.DecompressionFailed, "gzip read failed", err)
	}
	return out, nil
}

func compressLZ4(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if level >= BestSize {
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Level9))
	}
	if _, err := w.Write(data); err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "lz4 write failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.CompressionFailed, "lz4 close failed", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.DecompressionFailed, "lz4 read failed", err)
	}
	return out, nil
}

// Package reassembly splits oversized payloads into FRAGMENT_* frames and
// reassembles them back into a single payload on receipt (spec §4.2's
// fragmentation Open Question, resolved in SPEC_FULL.md). The per-stream
// tracking-state-plus-mutex shape is grounded on chunks.ChunkTracker's
// index/status bookkeeping, adapted from graph-backed file chunks to
// in-memory frame buffers since no persistence layer belongs here.
package reassembly

import (
	"sync"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// Fragmenter splits a payload into a sequence of frames no larger than
// maxFragmentSize, flagging the first with FlagFragmentStart, the last with
// FlagFragmentEnd, and every one in between with FlagFragmentContinue. A
// payload that already fits in one frame is returned as a single
// unfragmented frame (no fragment flags set).
type Fragmenter struct {
	MaxFragmentSize int
}

// NewFragmenter returns a Fragmenter splitting at maxFragmentSize bytes per
// frame payload.
func NewFragmenter(maxFragmentSize int) *Fragmenter {
	return &Fragmenter{MaxFragmentSize: maxFragmentSize}
}

// Split produces the frame sequence for payload on streamID, starting at
// startSequence.
func (f *Fragmenter) Split(frameType uint8, streamID uint64, startSequence uint32, payload []byte) ([]*types.Frame, error) {
	if f.MaxFragmentSize <= 0 {
		return nil, errs.Field(errs.InvalidArgument, "max_fragment_size", "must be positive")
	}

	if len(payload) <= f.MaxFragmentSize {
		return []*types.Frame{types.NewFrame(frameType, streamID, startSequence, payload)}, nil
	}

	var frames []*types.Frame
	seq := startSequence
	for offset := 0; offset < len(payload); offset += f.MaxFragmentSize {
		end := offset + f.MaxFragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]
		fr := types.NewFrame(frameType, streamID, seq, chunk)
		switch {
		case offset == 0:
			fr.SetFlag(types.FlagFragmentStart)
		case end == len(payload):
			fr.SetFlag(types.FlagFragmentEnd)
		default:
			fr.SetFlag(types.FlagFragmentContinue)
		}
		frames = append(frames, fr)
		seq++
	}
	return frames, nil
}

type streamState struct {
	nextSequence uint32
	started      bool
	payload      []byte
}

// Reassembler buffers fragments per stream_id and emits the concatenated
// payload once a FRAGMENT_END frame arrives. Frames arriving out of
// sequence, or fragment-flagged frames interleaved across two open streams
// that share a stream_id, are rejected with INVALID_FRAME.
type Reassembler struct {
	mu      sync.Mutex
	streams map[uint64]*streamState
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{streams: make(map[uint64]*streamState)}
}

// Feed processes one frame. It returns (payload, true, nil) when the frame
// completes a fragment sequence (or the frame was not fragmented at all),
// and (nil, false, nil) while a fragment sequence is still in progress.
func (r *Reassembler) Feed(f *types.Frame) ([]byte, bool, error) {
	if !f.IsFragmented() {
		return f.Payload, true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case f.HasFlag(types.FlagFragmentStart):
		if _, exists := r.streams[f.StreamID]; exists {
			return nil, false, errs.New(errs.InvalidFrame, "fragment start for a stream already in progress")
		}
		r.streams[f.StreamID] = &streamState{
			nextSequence: f.Sequence + 1,
			started:      true,
			payload:      append([]byte(nil), f.Payload...),
		}
		return nil, false, nil

	case f.HasFlag(types.FlagFragmentContinue):
		st, exists := r.streams[f.StreamID]
		if !exists || !st.started {
			return nil, false, errs.New(errs.InvalidFrame, "fragment continuation with no matching start")
		}
		if f.Sequence != st.nextSequence {
			return nil, false, errs.New(errs.InvalidFrame, "fragment received out of sequence")
		}
		st.payload = append(st.payload, f.Payload...)
		st.nextSequence++
		return nil, false, nil

	case f.HasFlag(types.FlagFragmentEnd):
		st, exists := r.streams[f.StreamID]
		if !exists || !st.started {
			return nil, false, errs.New(errs.InvalidFrame, "fragment end with no matching start")
		}
		if f.Sequence != st.nextSequence {
			return nil, false, errs.New(errs.InvalidFrame, "fragment received out of sequence")
		}
		payload := append(st.payload, f.Payload...)
		delete(r.streams, f.StreamID)
		return payload, true, nil

	default:
		return nil, false, errs.New(errs.InvalidFrame, "fragment flag combination not recognised")
	}
}

// Abandon discards any in-progress reassembly state for a stream. The
// orchestrator's failover path does not call it.
func (r *Reassembler) Abandon(streamID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, streamID)
}

// PendingStreams reports the stream ids currently mid-reassembly.
func (r *Reassembler) PendingStreams() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	return ids
}

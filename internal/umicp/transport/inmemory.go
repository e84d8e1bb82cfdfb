package transport

import (
	"context"
	"sync"

	"github.com/hivellm/umicp-sub000/internal/umicp/codec"
	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// InMemory is a Transport implementation that delivers frames/envelopes
// directly to a paired peer within the same process, with no network stack
// involved. It exists for tests and for local multi-orchestrator scenarios,
// the way the teacher's broker package tests its Connection registry
// against an in-process pipe rather than a real socket.
type InMemory struct {
	BaseStats
	HandlerSet

	mu        sync.Mutex
	connected bool
	cfg       Config
	peer      *InMemory
}

// NewInMemoryPair returns two InMemory transports wired to deliver to each
// other.
func NewInMemoryPair(endpointA, endpointB string) (*InMemory, *InMemory) {
	a := &InMemory{cfg: Config{Endpoint: endpointA}}
	b := &InMemory{cfg: Config{Endpoint: endpointB}}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *InMemory) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = true
	return nil
}

func (t *InMemory) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

func (t *InMemory) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *InMemory) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	connected, peer := t.connected, t.peer
	t.mu.Unlock()
	if !connected {
		return errs.New(errs.NetworkError, "transport not connected")
	}
	if peer == nil {
		return errs.New(errs.NetworkError, "transport has no peer")
	}

	f, err := codec.FrameFromBytes(data)
	if err != nil {
		t.AddError()
		return err
	}
	t.AddSent(uint64(len(data)))
	peer.AddReceived(uint64(len(data)))
	peer.FireFrame(f)
	return nil
}

func (t *InMemory) SendEnvelope(ctx context.Context, e *types.Envelope) error {
	t.mu.Lock()
	connected, peer := t.connected, t.peer
	t.mu.Unlock()
	if !connected {
		return errs.New(errs.NetworkError, "transport not connected")
	}
	if peer == nil {
		return errs.New(errs.NetworkError, "transport has no peer")
	}

	data, err := codec.EnvelopeToJSON(e)
	if err != nil {
		t.AddError()
		return err
	}
	t.AddSent(uint64(len(data)))
	peer.AddReceived(uint64(len(data)))
	peer.FireEnvelope(e)
	return nil
}

func (t *InMemory) SendFrame(ctx context.Context, f *types.Frame) error {
	data, err := codec.FrameToBytes(f)
	if err != nil {
		t.AddError()
		return err
	}
	return t.Send(ctx, data)
}

func (t *InMemory) Configure(cfg Config) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	return nil
}

func (t *InMemory) GetConfig() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

func (t *InMemory) GetType() Kind {
	return KindInMemory
}

func (t *InMemory) GetEndpoint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Endpoint
}

func (t *InMemory) GetStats() Stats {
	return t.Snapshot()
}

func (t *InMemory) ResetStats() {
	t.Reset()
}

var _ Transport = (*InMemory)(nil)

package umicp

import (
	"context"
	"time"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/transport"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// AddTransport registers handle under id. Duplicate ids fail
// INVALID_ARGUMENT (spec §4.7.2).
func (p *Protocol) AddTransport(id string, handle transport.Transport) error {
	if id == "" {
		return errs.Field(errs.InvalidArgument, "id", "must not be empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.transports[id]; exists {
		return errs.Field(errs.InvalidArgument, "id", "transport id already registered")
	}

	info := &TransportInfo{
		ID:               id,
		Kind:             handle.GetType(),
		handle:           handle,
		subscribedTopics: make(map[string]struct{}),
	}
	p.transports[id] = info
	p.order = append(p.order, id)

	handle.OnFrame(func(f *types.Frame) {
		p.noteReceived(info)
		_ = p.processFrame(f)
	})
	handle.OnEnvelope(func(e *types.Envelope) {
		p.noteReceived(info)
		p.dispatchEnvelope(e)
	})
	handle.OnError(func(err error) {
		p.markFailed(id, err)
	})
	return nil
}

func (p *Protocol) noteReceived(info *TransportInfo) {
	p.mu.Lock()
	info.messageCount++
	info.lastActivity = time.Now()
	p.mu.Unlock()
}

// RemoveTransport unregisters id, disconnecting it first if connected.
func (p *Protocol) RemoveTransport(id string) error {
	p.mu.Lock()
	info, exists := p.transports[id]
	if !exists {
		p.mu.Unlock()
		return errs.Field(errs.InvalidArgument, "id", "transport id not registered")
	}
	delete(p.transports, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	if info.connected {
		_ = info.handle.Disconnect(context.Background())
	}
	return nil
}

// ConnectTransport connects a single registered transport.
func (p *Protocol) ConnectTransport(ctx context.Context, id string) error {
	info, err := p.getTransport(id)
	if err != nil {
		return err
	}
	if err := info.handle.Connect(ctx); err != nil {
		p.markFailed(id, err)
		return err
	}

	p.mu.Lock()
	info.connected = true
	info.lastActivity = time.Now()
	info.failed = false
	info.activeConnections = 1
	p.mu.Unlock()
	return nil
}

// DisconnectTransport disconnects a single registered transport.
func (p *Protocol) DisconnectTransport(ctx context.Context, id string) error {
	info, err := p.getTransport(id)
	if err != nil {
		return err
	}
	if err := info.handle.Disconnect(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	info.connected = false
	info.activeConnections = 0
	p.mu.Unlock()
	return nil
}

// Connect connects every registered transport, returning the first error
// encountered (after attempting all of them).
func (p *Protocol) Connect(ctx context.Context) error {
	var first error
	for _, id := range p.GetTransportIDs() {
		if err := p.ConnectTransport(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Disconnect disconnects every registered transport, returning the first
// error encountered (after attempting all of them).
func (p *Protocol) Disconnect(ctx context.Context) error {
	var first error
	for _, id := range p.GetTransportIDs() {
		if err := p.DisconnectTransport(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// IsConnected reports whether any registered transport is connected.
func (p *Protocol) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, info := range p.transports {
		if info.connected {
			return true
		}
	}
	return false
}

// GetTransportIDs returns every registered transport id, in insertion order.
func (p *Protocol) GetTransportIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Protocol) getTransport(id string) (*TransportInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, exists := p.transports[id]
	if !exists {
		return nil, errs.Field(errs.InvalidArgument, "id", "transport id not registered")
	}
	return info, nil
}

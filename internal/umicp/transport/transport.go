// Package transport defines the abstract transport contract the protocol
// orchestrator drives (spec §10). Concrete transports (TCP, WebSocket, etc.)
// implement Transport; this package only carries the shared config/stats
// types and the interface itself. Grounded on internal/broker/service.go's
// Connection abstraction, which the teacher also keeps provider-agnostic
// behind a small interface plus a config struct.
package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// Kind identifies a transport implementation.
type Kind string

const (
	KindTCP       Kind = "TCP"
	KindWebSocket Kind = "WEBSOCKET"
	KindHTTP2     Kind = "HTTP2"
	KindInMemory  Kind = "IN_MEMORY"
)

// SSLConfig carries TLS parameters for transports that support it. Fields
// left empty use the runtime's defaults (e.g. the system trust store).
type SSLConfig struct {
	Enabled            bool
	CertFile           string
	KeyFile            string
	CAFile             string
	InsecureSkipVerify bool
}

// Config is the generic configuration every transport accepts; fields it
// doesn't use are ignored.
type Config struct {
	Endpoint          string
	ConnectTimeoutMs  int
	ReadTimeoutMs     int
	WriteTimeoutMs    int
	MaxMessageSize    int
	HeartbeatInterval int
	SSL               SSLConfig
	Options           map[string]string
}

// Info describes a transport for bookkeeping in the orchestrator's registry.
type Info struct {
	ID       string
	Kind     Kind
	Endpoint string
	Weight   int // descriptive only; WEIGHTED load balancing reads the weight set via Protocol.SetTransportWeight
}

// Stats counts traffic and error events a transport has observed.
type Stats struct {
	BytesSent        uint64
	BytesReceived    uint64
	MessagesSent     uint64
	MessagesReceived uint64
	Errors           uint64
	ActiveStreams    uint64
}

// EnvelopeHandler is invoked when a transport receives a complete envelope.
type EnvelopeHandler func(*types.Envelope)

// FrameHandler is invoked when a transport receives a raw frame.
type FrameHandler func(*types.Frame)

// ErrorHandler is invoked when a transport-level error occurs
// asynchronously (e.g. a read loop failure).
type ErrorHandler func(error)

// Transport is the contract the orchestrator drives. Implementations must
// be safe for concurrent use by the orchestrator's send path and their own
// receive loop.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	Send(ctx context.Context, data []byte) error
	SendEnvelope(ctx context.Context, e *types.Envelope) error
	SendFrame(ctx context.Context, f *types.Frame) error

	Configure(cfg Config) error
	GetConfig() Config
	GetType() Kind
	GetEndpoint() string

	OnEnvelope(EnvelopeHandler)
	OnFrame(FrameHandler)
	OnError(ErrorHandler)

	GetStats() Stats
	ResetStats()
}

// BaseStats is an embeddable Stats holder concrete transports can reuse
// instead of reimplementing atomic counters.
type BaseStats struct {
	bytesSent        uint64
	bytesReceived    uint64
	messagesSent     uint64
	messagesReceived uint64
	errors           uint64
	activeStreams    uint64
}

func (s *BaseStats) AddSent(bytes uint64) {
	atomic.AddUint64(&s.bytesSent, bytes)
	atomic.AddUint64(&s.messagesSent, 1)
}

func (s *BaseStats) AddReceived(bytes uint64) {
	atomic.AddUint64(&s.bytesReceived, bytes)
	atomic.AddUint64(&s.messagesReceived, 1)
}

func (s *BaseStats) AddError() {
	atomic.AddUint64(&s.errors, 1)
}

func (s *BaseStats) Snapshot() Stats {
	return Stats{
		BytesSent:        atomic.LoadUint64(&s.bytesSent),
		BytesReceived:    atomic.LoadUint64(&s.bytesReceived),
		MessagesSent:     atomic.LoadUint64(&s.messagesSent),
		MessagesReceived: atomic.LoadUint64(&s.messagesReceived),
		Errors:           atomic.LoadUint64(&s.errors),
		ActiveStreams:    atomic.LoadUint64(&s.activeStreams),
	}
}

func (s *BaseStats) Reset() {
	atomic.StoreUint64(&s.bytesSent, 0)
	atomic.StoreUint64(&s.bytesReceived, 0)
	atomic.StoreUint64(&s.messagesSent, 0)
	atomic.StoreUint64(&s.messagesReceived, 0)
	atomic.StoreUint64(&s.errors, 0)
	atomic.StoreUint64(&s.activeStreams, 0)
}

// HandlerSet is an embeddable holder for the three callback setters, again
// to keep concrete transports from reimplementing the same three fields
// and a mutex.
type HandlerSet struct {
	mu      sync.RWMutex
	onEnv   EnvelopeHandler
	onFrame FrameHandler
	onErr   ErrorHandler
}

func (h *HandlerSet) OnEnvelope(fn EnvelopeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEnv = fn
}

func (h *HandlerSet) OnFrame(fn FrameHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFrame = fn
}

func (h *HandlerSet) OnError(fn ErrorHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onErr = fn
}

func (h *HandlerSet) FireEnvelope(e *types.Envelope) {
	h.mu.RLock()
	fn := h.onEnv
	h.mu.RUnlock()
	if fn != nil {
		fn(e)
	}
}

func (h *HandlerSet) FireFrame(f *types.Frame) {
	h.mu.RLock()
	fn := h.onFrame
	h.mu.RUnlock()
	if fn != nil {
		fn(f)
	}
}

func (h *HandlerSet) FireError(err error) {
	h.mu.RLock()
	fn := h.onErr
	h.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

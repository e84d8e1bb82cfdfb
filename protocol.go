// Package umicp implements the Universal Matrix Intelligent Communication
// Protocol orchestrator: envelope/frame codecs, a multi-transport router
// with load balancing and failover, schema validation, and an optional
// security session. The orchestrator's transport/topic registries are
// grounded on internal/broker/service.go's Connection/Topic bookkeeping
// (map + RWMutex per concern, handlers invoked outside the lock); the
// convenience-send-method shape is grounded on
// internal/client/broker.go's call()/Publish()/SendPipe() pattern.
package umicp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hivellm/umicp-sub000/internal/umicp/compression"
	"github.com/hivellm/umicp-sub000/internal/umicp/config"
	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/logging"
	"github.com/hivellm/umicp-sub000/internal/umicp/schema"
	"github.com/hivellm/umicp-sub000/internal/umicp/security"
	"github.com/hivellm/umicp-sub000/internal/umicp/transport"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// Stats counts protocol-level traffic and error events (spec §4.7).
type Stats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	ErrorsCount      uint64
}

// LoadBalancingStrategy selects a transport among candidates eligible for a
// send (spec §4.7.4).
type LoadBalancingStrategy int

const (
	RoundRobin LoadBalancingStrategy = iota
	LeastConnections
	Random
	Weighted
)

// TransportInfo is the orchestrator's bookkeeping record for one registered
// transport (spec §4.7, the fields table preceding §4.7.1).
type TransportInfo struct {
	ID   string
	Kind transport.Kind

	handle transport.Transport

	connected         bool
	activeConnections uint64
	messageCount      uint64
	lastActivity      time.Time
	subscribedTopics  map[string]struct{}

	failed      bool
	failureCount uint64
	lastFailure time.Time
	nextRetry   time.Time
	retryCount  uint64

	weight int
}

// Protocol is the UMICP orchestrator: one per local participant in the
// network. Create with New, register transports with AddTransport, then
// Connect and start sending.
type Protocol struct {
	localID string
	cfg     *config.Config

	mu         sync.RWMutex
	transports map[string]*TransportInfo
	order      []string // insertion order, for get_transport_ids and round robin

	globalTopicsMu sync.RWMutex
	globalTopics   map[string]struct{}

	schemaRegistry *schema.Registry
	security       *security.Manager
	compressionMgr *compression.Manager
	logger         *logging.SessionLogger

	loadBalancing   LoadBalancingStrategy
	failoverEnabled bool
	roundRobinIndex uint64
	nextStreamID    uint64

	stats Stats

	handlersMu sync.RWMutex
	handlers   map[types.Op]Handler

	configured int32 // not read or written; Configure checks TransportInfo.connected instead
}

// Handler processes an inbound, fully-validated Envelope dispatched for its
// OperationType (spec §4.7.7), together with the payload correlated to it
// (nil when the envelope carried none).
type Handler func(*types.Envelope, []byte)

// New creates a Protocol identified by localID, with cfg (or config.Default()
// if nil) and no registered transports.
func New(localID string, cfg *config.Config) (*Protocol, error) {
	if localID == "" {
		return nil, errs.Field(errs.InvalidArgument, "local_id", "must not be empty")
	}
	if cfg == nil {
		cfg = config.Default()
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	algo := compressionAlgorithmFromString(cfg.CompressionAlgorithm)
	lb, err := loadBalancingFromString(cfg.LoadBalancingStrategy)
	if err != nil {
		return nil, err
	}

	return &Protocol{
		localID:         localID,
		cfg:             cfg,
		transports:      make(map[string]*TransportInfo),
		globalTopics:    make(map[string]struct{}),
		schemaRegistry:  schema.NewRegistry(),
		compressionMgr:  compression.New(algo),
		loadBalancing:   lb,
		failoverEnabled: cfg.FailoverEnabled,
		nextStreamID:    1,
		handlers:        make(map[types.Op]Handler),
	}, nil
}

// Configure replaces the protocol's configuration. Fails with
// INVALID_ARGUMENT if any transport is currently connected (spec §4.7.1).
func (p *Protocol) Configure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, info := range p.transports {
		if info.connected {
			return errs.New(errs.InvalidArgument, "cannot reconfigure while a transport is connected")
		}
	}

	lb, err := loadBalancingFromString(cfg.LoadBalancingStrategy)
	if err != nil {
		return err
	}

	p.cfg = cfg
	p.loadBalancing = lb
	p.failoverEnabled = cfg.FailoverEnabled
	p.compressionMgr = compression.New(compressionAlgorithmFromString(cfg.CompressionAlgorithm))
	return nil
}

// UseSecurity attaches a security manager for encrypted sends. Passing nil
// disables encryption support.
func (p *Protocol) UseSecurity(mgr *security.Manager) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.security = mgr
}

// UseLogger attaches a session logger. Passing nil falls back to the
// package-level logging.Debug/Info/Error helpers.
func (p *Protocol) UseLogger(logger *logging.SessionLogger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// EstablishSecureSession drives the attached security manager from its
// current state through SetPeerPublicKey and EstablishSession, logging each
// transition (spec §7).
func (p *Protocol) EstablishSecureSession(peerPublicKey []byte) error {
	p.mu.RLock()
	sec := p.security
	p.mu.RUnlock()
	if sec == nil {
		return errs.New(errs.InvalidArgument, "no security manager attached")
	}

	before := sec.CurrentState()
	if err := sec.SetPeerPublicKey(peerPublicKey); err != nil {
		p.logError("handshake: set_peer_public_key failed: %v", err)
		return err
	}
	p.logHandshake(before.String(), sec.CurrentState().String())

	before = sec.CurrentState()
	if err := sec.EstablishSession(); err != nil {
		p.logError("handshake: establish_session failed: %v", err)
		return err
	}
	p.logHandshake(before.String(), sec.CurrentState().String())
	return nil
}

// CloseSecureSession closes the attached security manager's session,
// logging the transition.
func (p *Protocol) CloseSecureSession() {
	p.mu.RLock()
	sec := p.security
	p.mu.RUnlock()
	if sec == nil {
		return
	}
	before := sec.CurrentState()
	sec.CloseSession()
	p.logHandshake(before.String(), sec.CurrentState().String())
}

func (p *Protocol) logHandshake(from, to string) {
	p.mu.RLock()
	logger := p.logger
	p.mu.RUnlock()
	if logger != nil {
		logger.LogHandshake(p.localID, from, to)
		return
	}
	logging.Info("handshake: %s %s -> %s", p.localID, from, to)
}

func (p *Protocol) logFailover(transportID, fromState, toState, reason string) {
	p.mu.RLock()
	logger := p.logger
	p.mu.RUnlock()
	if logger != nil {
		logger.LogFailover(transportID, fromState, toState, reason)
		return
	}
	logging.Info("failover: transport=%s %s -> %s (%s)", transportID, fromState, toState, reason)
}

func (p *Protocol) logError(format string, args ...interface{}) {
	p.mu.RLock()
	logger := p.logger
	p.mu.RUnlock()
	if logger != nil {
		logger.Error(format, args...)
		return
	}
	logging.Error(format, args...)
}

// LocalID returns the protocol's own participant id.
func (p *Protocol) LocalID() string {
	return p.localID
}

// SchemaRegistry exposes the protocol's schema registry for callers that
// need to register schemas directly.
func (p *Protocol) SchemaRegistry() *schema.Registry {
	return p.schemaRegistry
}

// GetStats returns a snapshot of protocol-level counters.
func (p *Protocol) GetStats() Stats {
	return Stats{
		MessagesSent:     atomic.LoadUint64(&p.stats.MessagesSent),
		MessagesReceived: atomic.LoadUint64(&p.stats.MessagesReceived),
		BytesSent:        atomic.LoadUint64(&p.stats.BytesSent),
		BytesReceived:    atomic.LoadUint64(&p.stats.BytesReceived),
		ErrorsCount:      atomic.LoadUint64(&p.stats.ErrorsCount),
	}
}

func compressionAlgorithmFromString(s string) compression.Algorithm {
	switch s {
	case "ZLIB":
		return compression.Zlib
	case "GZIP":
		return compression.Gzip
	case "LZ4":
		return compression.LZ4
	default:
		return compression.None
	}
}

func loadBalancingFromString(s string) (LoadBalancingStrategy, error) {
	switch s {
	case "", "ROUND_ROBIN":
		return RoundRobin, nil
	case "LEAST_CONNECTIONS":
		return LeastConnections, nil
	case "RANDOM":
		return Random, nil
	case "WEIGHTED":
		return Weighted, nil
	default:
		return 0, errs.Field(errs.InvalidArgument, "load_balancing_strategy", "unrecognised strategy")
	}
}

package umicp

import (
	"context"
	"time"
)

// failoverBaseBackoff and failoverMaxBackoff bound the exponential backoff
// retry_failed_transports uses before reattempting a FAILED transport
// (spec §4.7.5).
const (
	failoverBaseBackoff = 500 * time.Millisecond
	failoverMaxBackoff  = 60 * time.Second
)

func backoff(retryCount uint64) time.Duration {
	d := failoverBaseBackoff
	for i := uint64(0); i < retryCount && d < failoverMaxBackoff; i++ {
		d *= 2
	}
	if d > failoverMaxBackoff {
		d = failoverMaxBackoff
	}
	return d
}

// MarkTransportFailed transitions a transport HEALTHY -> FAILED. An unknown
// id returns INVALID_ARGUMENT (spec §4.7.5's resolved Open Question).
func (p *Protocol) MarkTransportFailed(id string) error {
	if _, err := p.getTransport(id); err != nil {
		return err
	}
	p.markFailed(id, nil)
	return nil
}

func (p *Protocol) markFailed(id string, cause error) {
	p.mu.Lock()
	info, exists := p.transports[id]
	if !exists {
		p.mu.Unlock()
		return
	}

	wasFailed := info.failed
	info.connected = false
	info.activeConnections = 0
	info.failed = true
	info.failureCount++
	info.lastFailure = time.Now()
	info.nextRetry = info.lastFailure.Add(backoff(info.retryCount))
	p.mu.Unlock()

	if !wasFailed {
		reason := "transport marked failed"
		if cause != nil {
			reason = cause.Error()
		}
		p.logFailover(id, "HEALTHY", "FAILED", reason)
	}
}

// RetryFailedTransports scans FAILED transports whose next_retry has
// elapsed, attempts reconnection, and updates their state per the
// HEALTHY/FAILED/RETRYING machine.
func (p *Protocol) RetryFailedTransports(ctx context.Context) {
	now := time.Now()

	p.mu.RLock()
	var candidates []string
	for id, info := range p.transports {
		if info.failed && !now.Before(info.nextRetry) {
			candidates = append(candidates, id)
		}
	}
	p.mu.RUnlock()

	for _, id := range candidates {
		p.retryOne(ctx, id)
	}
}

func (p *Protocol) retryOne(ctx context.Context, id string) {
	p.mu.RLock()
	info, exists := p.transports[id]
	p.mu.RUnlock()
	if !exists {
		return
	}

	err := info.handle.Connect(ctx)

	p.mu.Lock()
	if err != nil {
		info.retryCount++
		info.lastFailure = time.Now()
		info.nextRetry = info.lastFailure.Add(backoff(info.retryCount))
		p.mu.Unlock()
		p.logFailover(id, "FAILED", "FAILED", "retry attempt failed: "+err.Error())
		return
	}

	info.connected = true
	info.failed = false
	info.retryCount = 0
	info.activeConnections = 1
	info.lastActivity = time.Now()
	p.mu.Unlock()

	p.logFailover(id, "FAILED", "HEALTHY", "retry succeeded")
}

// GetFailedTransportIDs returns the ids currently in the FAILED state, in
// insertion order.
func (p *Protocol) GetFailedTransportIDs() []string {
	return p.filterTransportIDs(func(info *TransportInfo) bool { return info.failed })
}

// GetHealthyTransportIDs returns the ids currently healthy (connected and
// not failed), in insertion order.
func (p *Protocol) GetHealthyTransportIDs() []string {
	return p.filterTransportIDs(func(info *TransportInfo) bool { return info.connected && !info.failed })
}

func (p *Protocol) filterTransportIDs(keep func(*TransportInfo) bool) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for _, id := range p.order {
		if keep(p.transports[id]) {
			out = append(out, id)
		}
	}
	return out
}

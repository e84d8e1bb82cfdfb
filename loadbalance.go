package umicp

import (
	"math/rand/v2"
)

// chooseTransport applies the configured load-balancing strategy over
// candidates (already filtered to healthy, connected, topic-matching
// transports by the caller) and returns the selected transport id
// (spec §4.7.4). The caller must hold no lock; chooseTransport takes its
// own read lock for LEAST_CONNECTIONS' activeConnections lookup and its own
// write lock for ROUND_ROBIN's index increment.
func (p *Protocol) chooseTransport(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	switch p.loadBalancing {
	case LeastConnections:
		return p.chooseLeastConnections(candidates), true
	case Random:
		return candidates[rand.IntN(len(candidates))], true
	case Weighted:
		return p.chooseWeighted(candidates), true
	default: // RoundRobin
		idx := p.nextRoundRobinIndex(uint64(len(candidates)))
		return candidates[idx], true
	}
}

func (p *Protocol) nextRoundRobinIndex(n uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.roundRobinIndex % n
	p.roundRobinIndex++
	return idx
}

func (p *Protocol) chooseLeastConnections(candidates []string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	best := candidates[0]
	bestCount := p.transports[best].activeConnections
	for _, id := range candidates[1:] {
		if c := p.transports[id].activeConnections; c < bestCount {
			best = id
			bestCount = c
		}
	}
	return best
}

func (p *Protocol) chooseWeighted(candidates []string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := 0
	weights := make([]int, len(candidates))
	for i, id := range candidates {
		w := p.transports[id].weight
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}

	pick := rand.IntN(total)
	for i, w := range weights {
		if pick < w {
			return candidates[i]
		}
		pick -= w
	}
	return candidates[len(candidates)-1]
}

// SetTransportWeight sets the weight WEIGHTED load balancing uses for id. A
// transport with no weight set behaves as weight 1 (spec §4.7.4).
func (p *Protocol) SetTransportWeight(id string, weight int) error {
	info, err := p.getTransport(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	info.weight = weight
	p.mu.Unlock()
	return nil
}

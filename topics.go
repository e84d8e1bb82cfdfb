package umicp

import (
	"context"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// SubscribeTopic adds topic to transportID's subscription set, or to every
// registered transport plus the global set when transportID is empty
// (spec §4.7.3).
func (p *Protocol) SubscribeTopic(topic string, transportID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if transportID != "" {
		info, exists := p.transports[transportID]
		if !exists {
			return errs.Field(errs.InvalidArgument, "transport_id", "transport id not registered")
		}
		info.subscribedTopics[topic] = struct{}{}
		return nil
	}

	for _, info := range p.transports {
		info.subscribedTopics[topic] = struct{}{}
	}
	p.globalTopicsMu.Lock()
	p.globalTopics[topic] = struct{}{}
	p.globalTopicsMu.Unlock()
	return nil
}

// UnsubscribeTopic removes topic from every transport and the global set.
func (p *Protocol) UnsubscribeTopic(topic string) {
	p.mu.Lock()
	for _, info := range p.transports {
		delete(info.subscribedTopics, topic)
	}
	p.mu.Unlock()

	p.globalTopicsMu.Lock()
	delete(p.globalTopics, topic)
	p.globalTopicsMu.Unlock()
}

// PublishTopic wraps data in a DATA envelope + frame and sends it to one
// transport selected, by the load-balancing policy, from the subset
// subscribed to topic (spec §4.7.3).
func (p *Protocol) PublishTopic(ctx context.Context, topic string, data []byte, hint *types.PayloadHint) (string, error) {
	b := types.NewBuilder(p.localID, topic, types.OpData)
	candidates := p.topicCandidates(topic)
	return p.sendEnvelopeVia(ctx, b, data, hint, candidates)
}

func (p *Protocol) topicCandidates(topic string) []string {
	p.globalTopicsMu.RLock()
	_, global := p.globalTopics[topic]
	p.globalTopicsMu.RUnlock()

	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for _, id := range p.order {
		info := p.transports[id]
		if !info.connected || info.failed {
			continue
		}
		if global {
			out = append(out, id)
			continue
		}
		if _, ok := info.subscribedTopics[topic]; ok {
			out = append(out, id)
		}
	}
	return out
}

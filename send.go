package umicp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hivellm/umicp-sub000/internal/umicp/codec"
	"github.com/hivellm/umicp-sub000/internal/umicp/compression"
	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/security"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

const frameTypeData uint8 = 0

// SendControl builds and sends a CONTROL envelope carrying command/params
// as its payload, returning the generated msg_id (spec §4.7.6).
func (p *Protocol) SendControl(ctx context.Context, to, command string, params map[string]string) (string, error) {
	b := types.NewBuilder(p.localID, to, types.OpControl)
	for k, v := range params {
		b = b.WithCapability(k, v)
	}
	b = b.WithCapability("command", command)
	return p.sendEnvelope(ctx, b, nil, nil)
}

// SendData builds and sends a DATA envelope carrying data, returning the
// generated msg_id.
func (p *Protocol) SendData(ctx context.Context, to string, data []byte, hint *types.PayloadHint) (string, error) {
	b := types.NewBuilder(p.localID, to, types.OpData)
	return p.sendEnvelope(ctx, b, data, hint)
}

// SendAck builds and sends an ACK envelope referencing originalMsgID.
func (p *Protocol) SendAck(ctx context.Context, to, originalMsgID string) (string, error) {
	b := types.NewBuilder(p.localID, to, types.OpAck).WithCapability("ack_of", originalMsgID)
	return p.sendEnvelope(ctx, b, nil, nil)
}

// SendError builds and sends an ERROR envelope carrying code/message, and
// optionally a reference to the message it responds to.
func (p *Protocol) SendError(ctx context.Context, to string, code, message string, originalMsgID string) (string, error) {
	b := types.NewBuilder(p.localID, to, types.OpError).
		WithCapability("error_code", code).
		WithCapability("error_message", message)
	if originalMsgID != "" {
		b = b.WithCapability("ack_of", originalMsgID)
	}
	return p.sendEnvelope(ctx, b, nil, nil)
}

func (p *Protocol) sendEnvelope(ctx context.Context, b *types.Builder, payload []byte, hint *types.PayloadHint) (string, error) {
	return p.sendEnvelopeVia(ctx, b, payload, hint, p.directCandidates())
}

// sendEnvelopeVia implements the outbound pipeline of spec §4.7.6 in full:
// it assigns a stream id and attaches a PayloadHint/PayloadRef describing
// the correlated payload (steps 2-3), serializes the built envelope in the
// configured preferred_format, packs the envelope and payload into one
// frame body (step 6, carrying the control-plane message that
// codec.DecodeEnvelope recovers on the receive side), then applies
// compression/encryption to that body (step 5) and hands the resulting
// frame to a selected transport (steps 7-8).
func (p *Protocol) sendEnvelopeVia(ctx context.Context, b *types.Builder, payload []byte, hint *types.PayloadHint, candidates []string) (string, error) {
	streamID := atomic.AddUint64(&p.nextStreamID, 1) - 1

	if len(payload) > 0 {
		if hint != nil {
			b = b.WithPayloadHint(*hint)
		} else {
			b = b.WithPayloadHint(types.HintForBytes(types.PayloadBinary, payload))
		}
		b = b.WithPayloadRef(types.PayloadRef{
			StreamID: streamID,
			Offset:   0,
			Length:   uint64(len(payload)),
			Checksum: sha256Hex(payload),
		})
	}

	env, err := b.Build()
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return "", err
	}

	format, err := codec.FormatFromString(p.cfg.PreferredFormat)
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return "", err
	}
	envelopeBytes, err := codec.EncodeEnvelope(env, format)
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return "", err
	}
	body := codec.PackFrameBody(format, envelopeBytes, payload)

	if err := p.sendFrameBody(ctx, streamID, body, candidates); err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return "", err
	}
	return env.MsgID, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (p *Protocol) directCandidates() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for _, id := range p.order {
		info := p.transports[id]
		if info.connected && !info.failed {
			out = append(out, id)
		}
	}
	return out
}

// sendFrameBody implements spec §4.7.6 steps 4-8 over an already-packed
// frame body: compress/encrypt per configuration, select a transport, and
// send the resulting bytes.
func (p *Protocol) sendFrameBody(ctx context.Context, streamID uint64, body []byte, candidates []string) error {
	frame, err := p.frameForSend(streamID, body)
	if err != nil {
		return err
	}

	transportID, ok := p.chooseTransport(candidates)
	if !ok {
		return errs.New(errs.NetworkError, "no healthy transport available")
	}

	data, err := codec.FrameToBytes(frame)
	if err != nil {
		return err
	}

	p.mu.RLock()
	info := p.transports[transportID]
	handle := info.handle
	p.mu.RUnlock()

	if err := handle.Send(ctx, data); err != nil {
		p.markFailed(transportID, err)
		return err
	}

	atomic.AddUint64(&p.stats.MessagesSent, 1)
	atomic.AddUint64(&p.stats.BytesSent, uint64(len(data)))

	p.mu.Lock()
	info.messageCount++
	info.lastActivity = time.Now()
	p.mu.Unlock()

	return nil
}

// frameForSend builds the data-plane frame for body, applying compression
// and (whenever a session is established) encryption in the order
// spec §4.7.6 step 5 describes: when
// require_encryption is set, encryption happens before the
// compress-or-not decision is evaluated against the post-encryption bytes
// (so compression is outermost); otherwise compression happens first, then
// encryption, so the compressor still sees compressible plaintext
// (encryption outermost). receive.go's processFrame must undo whichever
// order was used here, in reverse.
func (p *Protocol) frameForSend(streamID uint64, payload []byte) (*types.Frame, error) {
	hasSession := p.security != nil && p.security.CurrentState() == security.Session
	requireEncryption := hasSession && p.cfg != nil && p.cfg.RequireEncryption

	body := payload
	var flags types.Flag

	if requireEncryption {
		encrypted, err := p.security.EncryptData(body)
		if err != nil {
			return nil, err
		}
		body = encrypted
		flags |= types.FlagEncryptedXChaCha

		if compression.ShouldCompress(len(body), p.cfg.CompressionThreshold) && p.compressionMgr.Algorithm() != compression.None {
			compressed, err := p.compressionMgr.Compress(body, compression.DefaultLevel)
			if err == nil {
				body = compressed
				flags |= types.FlagCompressedGzip
			}
		}
	} else {
		if compression.ShouldCompress(len(body), p.cfg.CompressionThreshold) && p.compressionMgr.Algorithm() != compression.None {
			compressed, err := p.compressionMgr.Compress(body, compression.DefaultLevel)
			if err == nil {
				body = compressed
				flags |= types.FlagCompressedGzip
			}
		}
		if hasSession {
			encrypted, err := p.security.EncryptData(body)
			if err != nil {
				return nil, err
			}
			body = encrypted
			flags |= types.FlagEncryptedXChaCha
		}
	}

	frame := types.NewFrame(frameTypeData, streamID, 1, body)
	frame.Flags |= flags
	return frame, nil
}

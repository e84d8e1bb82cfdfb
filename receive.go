package umicp

import (
	"sync/atomic"

	"github.com/hivellm/umicp-sub000/internal/umicp/codec"
	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
	"github.com/hivellm/umicp-sub000/internal/umicp/security"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// RegisterHandler installs fn as the handler for op, replacing any prior
// registration (spec §4.7.7: at most one handler per op).
func (p *Protocol) RegisterHandler(op types.Op, fn Handler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.handlers[op] = fn
}

// UnregisterHandler removes the handler registered for op, if any.
func (p *Protocol) UnregisterHandler(op types.Op) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	delete(p.handlers, op)
}

// ProcessMessage runs the inbound pipeline of spec §4.7.7 over raw bytes
// received from a transport: frame-deserialize, decrypt if encrypted,
// decompress if compressed, envelope-deserialize, envelope-validate,
// schema-validate if schema_uri is set, then dispatch to the handler
// registered for the envelope's op. Any step's failure increments
// stats.errors_count and is returned without invoking a handler.
func (p *Protocol) ProcessMessage(raw []byte) error {
	frame, err := codec.FrameFromBytes(raw)
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return err
	}
	atomic.AddUint64(&p.stats.BytesReceived, uint64(len(raw)))
	return p.processFrame(frame)
}

// processFrame runs the decrypt/decompress/unpack/deserialize/validate/
// dispatch steps of spec §4.7.7 over an already-parsed Frame, so transports
// that hand the orchestrator a parsed Frame (rather than raw bytes) skip a
// redundant reserialize-then-reparse round trip.
func (p *Protocol) processFrame(frame *types.Frame) error {
	atomic.AddUint64(&p.stats.MessagesReceived, 1)

	body, err := p.unwrapFrameBody(frame)
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return err
	}

	format, envelopeBytes, payload, err := codec.UnpackFrameBody(body)
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return err
	}

	env, err := codec.DecodeEnvelope(envelopeBytes, format)
	if err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return err
	}

	return p.validateAndDispatch(env, payload)
}

// unwrapFrameBody undoes whichever encrypt/compress nesting send.go's
// frameForSend applied. The two send-side orderings (spec §4.7.6 step 5)
// require two different inverse orderings here: when require_encryption is
// set, compression was applied last (outermost) so it must be undone
// first; otherwise encryption was applied last and is undone first. This
// assumes the receiver's configuration mirrors the sender's, the ordinary
// case for a point-to-point protocol instance sharing one config.
func (p *Protocol) unwrapFrameBody(frame *types.Frame) ([]byte, error) {
	body := frame.Payload
	requireEncryption := p.cfg != nil && p.cfg.RequireEncryption

	decrypt := func(b []byte) ([]byte, error) {
		if p.security == nil || p.security.CurrentState() != security.Session {
			return nil, errs.New(errs.DecryptionFailed, "frame is encrypted but no session is established")
		}
		return p.security.DecryptData(b)
	}
	decompress := func(b []byte) ([]byte, error) {
		return p.compressionMgr.Decompress(b)
	}

	if requireEncryption {
		if frame.IsCompressed() {
			decompressed, err := decompress(body)
			if err != nil {
				return nil, err
			}
			body = decompressed
		}
		if frame.IsEncrypted() {
			decrypted, err := decrypt(body)
			if err != nil {
				return nil, err
			}
			body = decrypted
		}
	} else {
		if frame.IsEncrypted() {
			decrypted, err := decrypt(body)
			if err != nil {
				return nil, err
			}
			body = decrypted
		}
		if frame.IsCompressed() {
			decompressed, err := decompress(body)
			if err != nil {
				return nil, err
			}
			body = decompressed
		}
	}
	return body, nil
}

// dispatchEnvelope runs validate/schema-validate/dispatch for transports
// that deliver an already-decoded Envelope (e.g. a WebSocket transport
// whose wire messages are JSON text frames, with no outer binary Frame or
// encryption/compression layer). Stats still count the delivery, but as a
// message only; no raw byte count is available here, and there is no
// separate correlated payload beyond what the envelope itself carries.
func (p *Protocol) dispatchEnvelope(env *types.Envelope) {
	atomic.AddUint64(&p.stats.MessagesReceived, 1)
	_ = p.validateAndDispatch(env, nil)
}

func (p *Protocol) validateAndDispatch(env *types.Envelope, payload []byte) error {
	if err := env.Validate(); err != nil {
		atomic.AddUint64(&p.stats.ErrorsCount, 1)
		return err
	}

	if env.SchemaURI != "" {
		rawForSchema := payload
		if rawForSchema == nil {
			rawForSchema, _ = codec.EnvelopeToJSON(env)
		}
		if err := p.schemaRegistry.ValidateMessage(env.SchemaURI, rawForSchema); err != nil {
			atomic.AddUint64(&p.stats.ErrorsCount, 1)
			return err
		}
	}

	p.handlersMu.RLock()
	handler := p.handlers[env.Op]
	p.handlersMu.RUnlock()
	if handler != nil {
		handler(env, payload)
	}
	return nil
}

package umicp

import (
	"context"
	"testing"

	"github.com/hivellm/umicp-sub000/internal/umicp/codec"
	"github.com/hivellm/umicp-sub000/internal/umicp/compression"
	"github.com/hivellm/umicp-sub000/internal/umicp/config"
	"github.com/hivellm/umicp-sub000/internal/umicp/security"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

// TestSendDataDeliversEnvelopeToPeer proves the control-plane envelope
// actually crosses the wire: the peer's ProcessMessage must decode it and
// dispatch to a registered DATA handler with the original payload intact.
func TestSendDataDeliversEnvelopeToPeer(t *testing.T) {
	ctx := context.Background()
	sender := newTestProtocol(t)
	receiver, err := New("bravo", config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	local, remote := pairedTransports(t, ctx, "t1", "r1")
	_ = sender.AddTransport("t1", local)
	_ = sender.ConnectTransport(ctx, "t1")

	received := make(chan *types.Frame, 1)
	remote.OnFrame(func(f *types.Frame) { received <- f })

	payload := []byte("hello bravo")
	msgID, err := sender.SendData(ctx, "bravo", payload, nil)
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}

	var gotEnv *types.Envelope
	var gotPayload []byte
	receiver.RegisterHandler(types.OpData, func(env *types.Envelope, payload []byte) {
		gotEnv = env
		gotPayload = payload
	})

	select {
	case f := <-received:
		if err := receiver.ProcessMessage(mustFrameBytes(t, f)); err != nil {
			t.Fatalf("ProcessMessage: %v", err)
		}
	default:
		t.Fatal("expected the peer transport to receive a frame")
	}

	if gotEnv == nil {
		t.Fatal("expected the DATA handler to run")
	}
	if gotEnv.MsgID != msgID {
		t.Errorf("received envelope MsgID = %q, want %q", gotEnv.MsgID, msgID)
	}
	if gotEnv.From != "alfa" || gotEnv.To != "bravo" {
		t.Errorf("received envelope From/To = %q/%q, want alfa/bravo", gotEnv.From, gotEnv.To)
	}
	if string(gotPayload) != string(payload) {
		t.Errorf("received payload = %q, want %q", gotPayload, payload)
	}
}

func mustFrameBytes(t *testing.T, f *types.Frame) []byte {
	t.Helper()
	data, err := codec.FrameToBytes(f)
	if err != nil {
		t.Fatalf("codec.FrameToBytes: %v", err)
	}
	return data
}

// TestRequireEncryptionRoundTripsThroughCompression exercises the
// require_encryption send ordering (encrypt, then compress the ciphertext)
// against the receive-side inverse ordering: without the matching
// decompress-then-decrypt order on receipt, AEAD open fails on still-
// compressed bytes.
func TestRequireEncryptionRoundTripsThroughCompression(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.RequireEncryption = true
	cfg.CompressionAlgorithm = "ZLIB"
	cfg.CompressionThreshold = 1

	sender, err := New("alfa", cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	receiver, err := New("bravo", cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	self := security.New()
	peer := security.New()
	pubSelf, _ := self.GenerateKeyPair()
	pubPeer, _ := peer.GenerateKeyPair()
	if err := self.SetPeerPublicKey(pubPeer); err != nil {
		t.Fatalf("self.SetPeerPublicKey: %v", err)
	}
	if err := peer.SetPeerPublicKey(pubSelf); err != nil {
		t.Fatalf("peer.SetPeerPublicKey: %v", err)
	}
	if err := self.EstablishSession(); err != nil {
		t.Fatalf("self.EstablishSession: %v", err)
	}
	if err := peer.EstablishSession(); err != nil {
		t.Fatalf("peer.EstablishSession: %v", err)
	}
	sender.UseSecurity(self)
	receiver.UseSecurity(peer)
	if sender.compressionMgr.Algorithm() != compression.Zlib {
		t.Fatalf("sender compression algorithm = %v, want Zlib", sender.compressionMgr.Algorithm())
	}

	local, remote := pairedTransports(t, ctx, "t1", "r1")
	_ = sender.AddTransport("t1", local)
	_ = sender.ConnectTransport(ctx, "t1")

	received := make(chan *types.Frame, 1)
	remote.OnFrame(func(f *types.Frame) { received <- f })

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 7)
	}

	var gotPayload []byte
	receiver.RegisterHandler(types.OpData, func(_ *types.Envelope, payload []byte) {
		gotPayload = payload
	})

	if _, err := sender.SendData(ctx, "bravo", payload, nil); err != nil {
		t.Fatalf("SendData: %v", err)
	}

	select {
	case f := <-received:
		if !f.IsEncrypted() || !f.IsCompressed() {
			t.Fatalf("expected frame to be both encrypted and compressed, flags=%v", f.Flags)
		}
		if err := receiver.ProcessMessage(mustFrameBytes(t, f)); err != nil {
			t.Fatalf("ProcessMessage: %v", err)
		}
	default:
		t.Fatal("expected the peer transport to receive a frame")
	}

	if string(gotPayload) != string(payload) {
		t.Error("round-tripped payload does not match the original")
	}
}

package umicp

import (
	"context"
	"testing"

	"github.com/hivellm/umicp-sub000/internal/umicp/config"
	"github.com/hivellm/umicp-sub000/internal/umicp/security"
	"github.com/hivellm/umicp-sub000/internal/umicp/transport"
	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

func pairedTransport(t *testing.T, ctx context.Context, id, peerID string) *transport.InMemory {
	t.Helper()
	local, _ := pairedTransports(t, ctx, id, peerID)
	return local
}

func pairedTransports(t *testing.T, ctx context.Context, id, peerID string) (*transport.InMemory, *transport.InMemory) {
	t.Helper()
	local, remote := transport.NewInMemoryPair(id, peerID)
	if err := local.Connect(ctx); err != nil {
		t.Fatalf("local.Connect: %v", err)
	}
	if err := remote.Connect(ctx); err != nil {
		t.Fatalf("remote.Connect: %v", err)
	}
	return local, remote
}

func newTestProtocol(t *testing.T) *Protocol {
	t.Helper()
	cfg := config.Default()
	p, err := New("alfa", cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRoundRobinSplitsEvenly(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol(t)

	t1 := pairedTransport(t, ctx, "t1", "r1")
	t2 := pairedTransport(t, ctx, "t2", "r2")
	if err := p.AddTransport("t1", t1); err != nil {
		t.Fatalf("AddTransport(t1): %v", err)
	}
	if err := p.AddTransport("t2", t2); err != nil {
		t.Fatalf("AddTransport(t2): %v", err)
	}
	if err := p.ConnectTransport(ctx, "t1"); err != nil {
		t.Fatalf("ConnectTransport(t1): %v", err)
	}
	if err := p.ConnectTransport(ctx, "t2"); err != nil {
		t.Fatalf("ConnectTransport(t2): %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := p.SendControl(ctx, "bravo", "ping", nil); err != nil {
			t.Fatalf("SendControl #%d: %v", i, err)
		}
	}

	if got := t1.GetStats().MessagesSent; got != 5 {
		t.Errorf("t1 MessagesSent = %d, want 5", got)
	}
	if got := t2.GetStats().MessagesSent; got != 5 {
		t.Errorf("t2 MessagesSent = %d, want 5", got)
	}
}

func TestFailoverRoutesAroundMarkedTransport(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol(t)

	t1 := pairedTransport(t, ctx, "t1", "r1")
	t2 := pairedTransport(t, ctx, "t2", "r2")
	_ = p.AddTransport("t1", t1)
	_ = p.AddTransport("t2", t2)
	_ = p.ConnectTransport(ctx, "t1")
	_ = p.ConnectTransport(ctx, "t2")

	if err := p.MarkTransportFailed("t1"); err != nil {
		t.Fatalf("MarkTransportFailed: %v", err)
	}

	if _, err := p.SendData(ctx, "bravo", []byte("hello"), nil); err != nil {
		t.Fatalf("SendData: %v", err)
	}

	if got := t1.GetStats().MessagesSent; got != 0 {
		t.Errorf("failed transport t1 MessagesSent = %d, want 0", got)
	}
	if got := t2.GetStats().MessagesSent; got != 1 {
		t.Errorf("healthy transport t2 MessagesSent = %d, want 1", got)
	}

	failed := p.GetFailedTransportIDs()
	if len(failed) != 1 || failed[0] != "t1" {
		t.Errorf("GetFailedTransportIDs() = %v, want [t1]", failed)
	}
	healthy := p.GetHealthyTransportIDs()
	if len(healthy) != 1 || healthy[0] != "t2" {
		t.Errorf("GetHealthyTransportIDs() = %v, want [t2]", healthy)
	}
}

func TestMarkTransportFailedUnknownID(t *testing.T) {
	p := newTestProtocol(t)
	if err := p.MarkTransportFailed("ghost"); err == nil {
		t.Fatal("expected INVALID_ARGUMENT marking an unregistered transport id as failed")
	}
}

func TestSendDataEncryptsWhenSessionEstablished(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.RequireEncryption = true
	p, err := New("alfa", cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	self := security.New()
	peer := security.New()
	pubSelf, _ := self.GenerateKeyPair()
	pubPeer, _ := peer.GenerateKeyPair()
	if err := self.SetPeerPublicKey(pubPeer); err != nil {
		t.Fatalf("SetPeerPublicKey: %v", err)
	}
	if err := self.EstablishSession(); err != nil {
		t.Fatalf("EstablishSession: %v", err)
	}
	_ = pubSelf
	p.UseSecurity(self)

	local, remote := pairedTransports(t, ctx, "t1", "r1")
	_ = p.AddTransport("t1", local)
	_ = p.ConnectTransport(ctx, "t1")

	received := make(chan *types.Frame, 1)
	remote.OnFrame(func(f *types.Frame) { received <- f })

	plaintext := []byte("Hello")
	if _, err := p.SendData(ctx, "bravo", plaintext, nil); err != nil {
		t.Fatalf("SendData: %v", err)
	}

	select {
	case f := <-received:
		if !f.IsEncrypted() {
			t.Error("expected the sent frame to carry FlagEncryptedXChaCha")
		}
		if len(f.Payload) < len(plaintext)+28 {
			t.Errorf("encrypted payload length %d not at least 28 bytes longer than plaintext %d", len(f.Payload), len(plaintext))
		}
	default:
		t.Fatal("expected the peer to receive a frame")
	}
}

func TestSendFailsWithNoHealthyTransport(t *testing.T) {
	p := newTestProtocol(t)
	if _, err := p.SendControl(context.Background(), "bravo", "ping", nil); err == nil {
		t.Fatal("expected NETWORK_ERROR with no registered transports")
	}
}

func TestTopicPublishSelectsSubscribedTransportOnly(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol(t)

	t1 := pairedTransport(t, ctx, "t1", "r1")
	t2 := pairedTransport(t, ctx, "t2", "r2")
	_ = p.AddTransport("t1", t1)
	_ = p.AddTransport("t2", t2)
	_ = p.ConnectTransport(ctx, "t1")
	_ = p.ConnectTransport(ctx, "t2")

	if err := p.SubscribeTopic("news", "t2"); err != nil {
		t.Fatalf("SubscribeTopic: %v", err)
	}

	if _, err := p.PublishTopic(ctx, "news", []byte("breaking"), nil); err != nil {
		t.Fatalf("PublishTopic: %v", err)
	}

	if got := t1.GetStats().MessagesSent; got != 0 {
		t.Errorf("unsubscribed t1 MessagesSent = %d, want 0", got)
	}
	if got := t2.GetStats().MessagesSent; got != 1 {
		t.Errorf("subscribed t2 MessagesSent = %d, want 1", got)
	}
}

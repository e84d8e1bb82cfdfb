package transport

import (
	"context"
	"testing"

	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

func TestInMemoryDeliversFrameToPeer(t *testing.T) {
	a, b := NewInMemoryPair("a", "b")
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("a.Connect: %v", err)
	}
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("b.Connect: %v", err)
	}

	received := make(chan *types.Frame, 1)
	b.OnFrame(func(f *types.Frame) { received <- f })

	f := types.NewFrame(0, 1, 1, []byte("ping"))
	if err := a.SendFrame(ctx, f); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	select {
	case got := <-received:
		if string(got.Payload) != "ping" {
			t.Errorf("payload = %q, want %q", got.Payload, "ping")
		}
	default:
		t.Fatal("expected the peer's OnFrame callback to fire synchronously")
	}

	stats := a.GetStats()
	if stats.MessagesSent != 1 {
		t.Errorf("sender MessagesSent = %d, want 1", stats.MessagesSent)
	}
	if b.GetStats().MessagesReceived != 1 {
		t.Errorf("receiver MessagesReceived = %d, want 1", b.GetStats().MessagesReceived)
	}
}

func TestInMemorySendFailsWhenNotConnected(t *testing.T) {
	a, _ := NewInMemoryPair("a", "b")
	err := a.Send(context.Background(), make([]byte, types.FrameHeaderSize))
	if err == nil {
		t.Fatal("expected Send to fail on a disconnected transport")
	}
}

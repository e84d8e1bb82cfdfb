package reassembly

import (
	"bytes"
	"testing"

	"github.com/hivellm/umicp-sub000/internal/umicp/types"
)

func TestFragmentSplitAndReassemble(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 25)
	fragmenter := NewFragmenter(10)

	frames, err := fragmenter.Split(0, 1, 1, payload)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("len(frames) = %d, want 3", len(frames))
	}
	if !frames[0].HasFlag(types.FlagFragmentStart) {
		t.Error("first frame missing FlagFragmentStart")
	}
	if !frames[1].HasFlag(types.FlagFragmentContinue) {
		t.Error("middle frame missing FlagFragmentContinue")
	}
	if !frames[2].HasFlag(types.FlagFragmentEnd) {
		t.Error("last frame missing FlagFragmentEnd")
	}

	reassembler := NewReassembler()
	var result []byte
	for _, f := range frames {
		out, done, err := reassembler.Feed(f)
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		if done {
			result = out
		}
	}
	if !bytes.Equal(result, payload) {
		t.Errorf("reassembled payload = %q, want %q", result, payload)
	}
}

func TestSplitFitsInSingleFrame(t *testing.T) {
	fragmenter := NewFragmenter(1024)
	frames, err := fragmenter.Split(0, 1, 1, []byte("small"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if frames[0].IsFragmented() {
		t.Error("a payload that fits in one frame should not carry fragment flags")
	}
}

func TestReassemblerRejectsOutOfSequence(t *testing.T) {
	reassembler := NewReassembler()
	start := types.NewFrame(0, 1, 1, []byte("a"))
	start.SetFlag(types.FlagFragmentStart)
	if _, _, err := reassembler.Feed(start); err != nil {
		t.Fatalf("Feed(start): %v", err)
	}

	outOfOrder := types.NewFrame(0, 1, 5, []byte("b"))
	outOfOrder.SetFlag(types.FlagFragmentEnd)
	if _, _, err := reassembler.Feed(outOfOrder); err == nil {
		t.Fatal("expected an error for an out-of-sequence fragment")
	}
}

func TestReassemblerRejectsDuplicateStart(t *testing.T) {
	reassembler := NewReassembler()
	start := types.NewFrame(0, 1, 1, []byte("a"))
	start.SetFlag(types.FlagFragmentStart)
	if _, _, err := reassembler.Feed(start); err != nil {
		t.Fatalf("Feed(start): %v", err)
	}
	if _, _, err := reassembler.Feed(start); err == nil {
		t.Fatal("expected an error for a duplicate fragment start on the same stream")
	}
}

func TestUnfragmentedFrameCompletesImmediately(t *testing.T) {
	reassembler := NewReassembler()
	f := types.NewFrame(0, 1, 1, []byte("whole"))
	out, done, err := reassembler.Feed(f)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !done {
		t.Fatal("expected an unfragmented frame to complete immediately")
	}
	if string(out) != "whole" {
		t.Errorf("out = %q, want %q", out, "whole")
	}
}

package buffer

import "testing"

func TestAppendWithinCapacity(t *testing.T) {
	b := NewWithCapacity(4, 16)
	if err := b.Append([]byte("abcd")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := b.Append([]byte("efgh")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if b.Len() != 8 {
		t.Errorf("Len() = %d, want 8", b.Len())
	}
}

func TestAppendOverflow(t *testing.T) {
	b := NewWithCapacity(4, 8)
	if err := b.Append(make([]byte, 8)); err != nil {
		t.Fatalf("Append up to cap: %v", err)
	}
	if err := b.Append([]byte{1}); err == nil {
		t.Fatal("expected BUFFER_OVERFLOW appending past capacity")
	}
	if b.Len() != 8 {
		t.Errorf("buffer length changed after a rejected append: got %d, want 8", b.Len())
	}
}

func TestDefaultCapAndMax(t *testing.T) {
	b := New()
	if err := b.Append(make([]byte, DefaultCapacity)); err != nil {
		t.Fatalf("Append at default capacity: %v", err)
	}
	if err := b.Append(make([]byte, MaxCapacity)); err == nil {
		t.Fatal("expected BUFFER_OVERFLOW exceeding the 100 MiB cap")
	}
}

func TestResetErasesAndEmpties(t *testing.T) {
	b := NewWithCapacity(8, 8)
	if err := b.Append([]byte("secret!!")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", b.Len())
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	r := NewRingBuffer(2)
	r.Push([]byte("a"))
	r.Push([]byte("b"))
	r.Push([]byte("c"))

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2", len(items))
	}
	if string(items[0]) != "b" || string(items[1]) != "c" {
		t.Errorf("Items() = %v, want [b c]", stringify(items))
	}
}

func stringify(items [][]byte) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	return out
}

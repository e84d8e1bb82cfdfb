package matrix

import "testing"

func TestAdd(t *testing.T) {
	got, err := Add([]float64{1, 2, 3, 4}, []float64{5, 6, 7, 8})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := []float64{6, 8, 10, 12}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Add() = %v, want %v", got, want)
		}
	}
}

func TestDot(t *testing.T) {
	got, err := Dot([]float64{1, 2, 3, 4}, []float64{5, 6, 7, 8})
	if err != nil {
		t.Fatalf("Dot: %v", err)
	}
	if got != 70 {
		t.Errorf("Dot() = %v, want 70", got)
	}
}

func TestAddRejectsLengthMismatch(t *testing.T) {
	if _, err := Add([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected an error for mismatched vector lengths")
	}
}

func TestDotRejectsLengthMismatch(t *testing.T) {
	if _, err := Dot([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected an error for mismatched vector lengths")
	}
}

func TestNorm(t *testing.T) {
	if got := Norm([]float64{3, 4}); got != 5 {
		t.Errorf("Norm([3,4]) = %v, want 5", got)
	}
}

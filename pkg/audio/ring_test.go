package audio_test

import (
	"testing"

	"github.com/MrWong99/meetscribe/pkg/audio"
)

func TestRing_PushDrain_FIFO(t *testing.T) {
	prod, cons := audio.NewRing(8)

	for i := range 5 {
		if !prod.Push(float32(i)) {
			t.Fatalf("push %d failed on non-full ring", i)
		}
	}

	got := cons.Drain(5)
	if len(got) != 5 {
		t.Fatalf("drained %d samples, want 5", len(got))
	}
	for i, s := range got {
		if s != float32(i) {
			t.Errorf("sample %d: got %v, want %v", i, s, float32(i))
		}
	}
}

func TestRing_Overflow_DropsNewest(t *testing.T) {
	prod, cons := audio.NewRing(4)

	// Push twice the capacity; the excess must be dropped, not block.
	var accepted int
	for i := range 8 {
		if prod.Push(float32(i)) {
			accepted++
		}
	}
	if accepted != 4 {
		t.Fatalf("accepted %d pushes, want 4", accepted)
	}

	// The oldest accepted samples survive; samples 4..7 were the ones shed.
	got := cons.Drain(8)
	if len(got) != 4 {
		t.Fatalf("drained %d samples, want 4", len(got))
	}
	for i, s := range got {
		if s != float32(i) {
			t.Errorf("sample %d: got %v, want %v", i, s, float32(i))
		}
	}
}

func TestRing_Drain_Bounds(t *testing.T) {
	prod, cons := audio.NewRing(16)
	for i := range 10 {
		prod.Push(float32(i))
	}

	if got := cons.Drain(3); len(got) != 3 {
		t.Fatalf("Drain(3) returned %d samples", len(got))
	}
	if got := cons.Drain(100); len(got) != 7 {
		t.Fatalf("Drain(100) returned %d samples, want the 7 remaining", len(got))
	}
	if got := cons.Drain(100); got != nil {
		t.Fatalf("Drain on empty ring returned %d samples, want nil", len(got))
	}
}

func TestRing_Drain_WrapAround(t *testing.T) {
	prod, cons := audio.NewRing(4)

	// Fill, half-drain, refill: the second drain must cross the wrap point
	// and still come out in FIFO order.
	for i := range 4 {
		prod.Push(float32(i))
	}
	cons.Drain(2)
	prod.Push(4)
	prod.Push(5)

	got := cons.Drain(4)
	want := []float32{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("drained %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRing_Clear(t *testing.T) {
	prod, cons := audio.NewRing(8)
	for range 6 {
		prod.Push(1)
	}
	cons.Clear()
	if n := cons.Len(); n != 0 {
		t.Fatalf("Len after Clear = %d, want 0", n)
	}
	if got := cons.Drain(8); got != nil {
		t.Fatalf("Drain after Clear returned %d samples", len(got))
	}
	// The ring is reusable after Clear.
	if !prod.Push(2) {
		t.Fatal("push after Clear failed")
	}
	if got := cons.Drain(1); len(got) != 1 || got[0] != 2 {
		t.Fatalf("drain after Clear = %v, want [2]", got)
	}
}

func TestRing_DefaultCapacity(t *testing.T) {
	prod, _ := audio.NewRing(0)
	if free := prod.Free(); free != audio.RingCapacity {
		t.Fatalf("default capacity = %d, want %d", free, audio.RingCapacity)
	}
}

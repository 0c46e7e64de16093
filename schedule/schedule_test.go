package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfterFires(t *testing.T) {
	s := New()
	done := make(chan struct{})
	s.After("r1", "start", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task never fired")
	}
	if n := s.Pending("r1"); n != 0 {
		t.Fatalf("pending after fire = %d, want 0", n)
	}
}

func TestCancelPreventsFire(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.After("r1", "start", 20*time.Millisecond, func() { fired.Add(1) })
	if !s.Cancel("r1", "start") {
		t.Fatalf("cancel reported nothing pending")
	}
	if s.Cancel("r1", "start") {
		t.Fatalf("second cancel should report false")
	}
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("canceled task fired")
	}
}

func TestCancelAllDropsOnlyThatKey(t *testing.T) {
	s := New()
	var a, b atomic.Int32
	s.After("r1", "start", 20*time.Millisecond, func() { a.Add(1) })
	s.After("r1", "end", 20*time.Millisecond, func() { a.Add(1) })
	s.After("r2", "end", 20*time.Millisecond, func() { b.Add(1) })

	if n := s.CancelAll("r1"); n != 2 {
		t.Fatalf("CancelAll = %d, want 2", n)
	}
	time.Sleep(80 * time.Millisecond)
	if a.Load() != 0 {
		t.Fatalf("tasks for r1 fired after CancelAll")
	}
	if b.Load() != 1 {
		t.Fatalf("task for r2 fired %d times, want 1", b.Load())
	}
}

func TestAfterReplacesSameName(t *testing.T) {
	s := New()
	var first, second atomic.Int32
	s.After("r1", "end", 20*time.Millisecond, func() { first.Add(1) })
	s.After("r1", "end", 30*time.Millisecond, func() { second.Add(1) })
	if n := s.Pending("r1"); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
	time.Sleep(100 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 1 {
		t.Fatalf("first=%d second=%d, want 0 and 1", first.Load(), second.Load())
	}
}

func TestStopCancelsEverything(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.After("r1", "a", 20*time.Millisecond, func() { fired.Add(1) })
	s.After("r2", "b", 20*time.Millisecond, func() { fired.Add(1) })
	s.Stop()
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("tasks fired after Stop")
	}
}

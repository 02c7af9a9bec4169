package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var callCount atomic.Int32
	var mu sync.Mutex
	var got string

	d := New(30*time.Millisecond, func(text string) {
		callCount.Add(1)
		mu.Lock()
		got = text
		mu.Unlock()
	})

	for _, text := range []string{"H", "Hi", "Hi.", "Hi. H", "Hi. Hi"} {
		d.Call(text)
	}

	time.Sleep(100 * time.Millisecond)

	if callCount.Load() != 1 {
		t.Errorf("callCount = %d, want 1", callCount.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if got != "Hi. Hi" {
		t.Errorf("callback got %q, want the latest value %q", got, "Hi. Hi")
	}
}

func TestDebouncer_SpacedCalls(t *testing.T) {
	var callCount atomic.Int32

	d := New(20*time.Millisecond, func(int) {
		callCount.Add(1)
	})

	for i := 0; i < 3; i++ {
		d.Call(i)
		time.Sleep(60 * time.Millisecond)
	}

	if callCount.Load() != 3 {
		t.Errorf("callCount = %d, want 3", callCount.Load())
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var callCount atomic.Int32

	d := New(20*time.Millisecond, func(int) {
		callCount.Add(1)
	})

	d.Call(1)
	if !d.Pending() {
		t.Error("expected a pending call")
	}
	d.Stop()

	time.Sleep(60 * time.Millisecond)

	if callCount.Load() != 0 {
		t.Errorf("callCount = %d, want 0 (stopped)", callCount.Load())
	}
	if d.Pending() {
		t.Error("expected no pending call after Stop")
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var callCount atomic.Int32
	var got atomic.Value

	d := New(time.Hour, func(text string) {
		callCount.Add(1)
		got.Store(text)
	})

	d.Flush()
	if callCount.Load() != 0 {
		t.Errorf("Flush without a pending call ran the callback")
	}

	d.Call("a")
	d.Call("b")
	d.Flush()

	if callCount.Load() != 1 {
		t.Errorf("callCount = %d, want 1", callCount.Load())
	}
	if got.Load() != "b" {
		t.Errorf("callback got %v, want b", got.Load())
	}
	if d.Pending() {
		t.Error("expected no pending call after Flush")
	}
}

func TestDebouncer_NeverOverlaps(t *testing.T) {
	var running, overlaps, calls atomic.Int32

	d := New(time.Millisecond, func(int) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
	})

	for i := 0; i < 20; i++ {
		d.Call(i)
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if overlaps.Load() != 0 {
		t.Errorf("callback overlapped %d times", overlaps.Load())
	}
	if calls.Load() == 0 {
		t.Error("expected at least one call")
	}
}

func TestDebouncer_LastValueIsNeverDropped(t *testing.T) {
	var last atomic.Int64

	d := New(2*time.Millisecond, func(v int) {
		time.Sleep(3 * time.Millisecond)
		last.Store(int64(v))
	})

	for i := 1; i <= 50; i++ {
		d.Call(i)
		if i%7 == 0 {
			time.Sleep(4 * time.Millisecond)
		}
	}

	time.Sleep(100 * time.Millisecond)

	if last.Load() != 50 {
		t.Errorf("last delivered value = %d, want 50", last.Load())
	}
}

func TestDebouncer_DefaultInterval(t *testing.T) {
	d := New(0, func(int) {})
	if d.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", d.Interval(), DefaultInterval)
	}
}

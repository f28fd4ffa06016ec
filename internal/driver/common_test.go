package driver

import (
	"testing"
	"time"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/timer"
)

func TestReconnectScheduleRetryDoublesDelay(t *testing.T) {
	w := timer.NewWheel(nil)
	r := NewReconnect(w, backoff.Policy{Min: 4 * time.Second, Max: 1800 * time.Second})

	d1 := r.ScheduleRetry(func() {})
	d2 := r.ScheduleRetry(func() {})
	if d1 != 4*time.Second {
		t.Fatalf("first delay = %v, want 4s", d1)
	}
	if d2 != 8*time.Second {
		t.Fatalf("second delay = %v, want 8s", d2)
	}
}

func TestReconnectDebounceResetsDelay(t *testing.T) {
	w := timer.NewWheel(nil)
	r := NewReconnect(w, backoff.Policy{Min: time.Millisecond, Max: time.Second})

	r.ScheduleRetry(func() {})
	r.ArmDebounce()
	w.Dispatch(time.Now().Add(5 * time.Millisecond))

	if r.CurrentDelay() != 0 {
		t.Fatalf("expected debounce to reset delay to 0, got %v", r.CurrentDelay())
	}
}

func TestReconnectCancelPendingRetry(t *testing.T) {
	w := timer.NewWheel(nil)
	r := NewReconnect(w, backoff.Policy{Min: time.Millisecond, Max: time.Second})

	fired := false
	r.ScheduleRetry(func() { fired = true })
	r.CancelPendingRetry()

	w.Dispatch(time.Now().Add(10 * time.Millisecond))
	if fired {
		t.Fatalf("expected cancelled retry to not fire")
	}
}

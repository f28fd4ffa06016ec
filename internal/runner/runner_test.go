package runner

import (
	"context"
	"errors"
	"testing"
)

func TestNewInitialState(t *testing.T) {
	r := New(func(context.Context) error { return nil }, func(context.Context) error { return nil })
	if r.IsRunning() {
		t.Fatalf("expected not running initially")
	}
	if r.Uptime() != 0 {
		t.Fatalf("expected zero uptime before Start")
	}
	if r.ErrorsLast() != nil || len(r.ErrorsList()) != 0 {
		t.Fatalf("expected no errors initially")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	r := New(func(context.Context) error { return nil }, func(context.Context) error { return nil })
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.IsRunning() {
		t.Fatalf("expected running after Start")
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.IsRunning() {
		t.Fatalf("expected not running after Stop")
	}
}

func TestStartFailureRecordsError(t *testing.T) {
	boom := errors.New("boom")
	r := New(func(context.Context) error { return boom }, nil)
	if err := r.Start(context.Background()); err != boom {
		t.Fatalf("Start error = %v, want %v", err, boom)
	}
	if r.IsRunning() {
		t.Fatalf("expected not running after a failed Start")
	}
	if r.ErrorsLast() != boom {
		t.Fatalf("ErrorsLast() = %v, want %v", r.ErrorsLast(), boom)
	}
}

func TestRestartStopsThenStarts(t *testing.T) {
	var stopped, started bool
	r := New(
		func(context.Context) error { started = true; return nil },
		func(context.Context) error { stopped = true; return nil },
	)
	_ = r.Start(context.Background())
	started = false
	if err := r.Restart(context.Background()); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if !stopped || !started {
		t.Fatalf("expected both stop and start invoked by Restart")
	}
	if !r.IsRunning() {
		t.Fatalf("expected running after Restart")
	}
}

func TestNilFuncsAreNoops(t *testing.T) {
	r := New(nil, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start with nil func: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop with nil func: %v", err)
	}
}

func TestDoubleStopIsNoop(t *testing.T) {
	r := New(func(context.Context) error { return nil }, func(context.Context) error { return nil })
	_ = r.Start(context.Background())
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

package reactor

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// fakeMember is a Member backed by a pipe, used to drive the poll loop
// deterministically without a real console driver.
type fakeMember struct {
	fd       int
	wantRead bool
	reads    int
	dead     bool
}

func (f *fakeMember) FD() int { return f.fd }
func (f *fakeMember) Interest() Interest {
	return Interest{Read: f.wantRead}
}
func (f *fakeMember) OnReadable() bool {
	f.reads++
	var buf [4096]byte
	_, _ = unix.Read(f.fd, buf[:])
	return !f.dead
}
func (f *fakeMember) OnWritable() bool { return true }

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	return fds[0], fds[1]
}

func TestStepDispatchesReadableMember(t *testing.T) {
	rd, wr := newPipe(t)
	defer unix.Close(wr)

	rx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	m := &fakeMember{fd: rd, wantRead: true}
	rx.Register(m)

	unix.Write(wr, []byte("hi"))

	if done := rx.step(); done {
		t.Fatalf("expected step to continue")
	}
	if m.reads != 1 {
		t.Fatalf("expected OnReadable called once, got %d", m.reads)
	}
}

func TestStepRemovesDeadMember(t *testing.T) {
	rd, wr := newPipe(t)
	defer unix.Close(wr)
	defer unix.Close(rd)

	rx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	m := &fakeMember{fd: rd, wantRead: true, dead: true}
	rx.Register(m)
	unix.Write(wr, []byte("x"))

	rx.step()

	rx.mu.Lock()
	_, present := rx.members[m]
	rx.mu.Unlock()
	if present {
		t.Fatalf("expected dead member to be unregistered")
	}
}

func TestReconfigureFlagInvokesHookOnce(t *testing.T) {
	calls := 0
	rx, err := New(func() { calls++ })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	rx.RequestReconfigure()
	rx.step()
	rx.step()

	if calls != 1 {
		t.Fatalf("expected reconfigure hook called exactly once, got %d", calls)
	}
}

func TestTimerDispatchedDuringStep(t *testing.T) {
	rx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	fired := make(chan struct{}, 1)
	rx.Timers().Add(time.Now().Add(-time.Millisecond), func(any) { fired <- struct{}{} }, nil)

	rx.step()

	select {
	case <-fired:
	default:
		t.Fatalf("expected expired timer to fire during step")
	}
}

func TestRequestResetRunsAfterIteration(t *testing.T) {
	rx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	ran := false
	rx.RequestReset(func() { ran = true })
	rx.step()

	if !ran {
		t.Fatalf("expected pending reset to run within the iteration it was requested")
	}
}

func TestStopEndsLoop(t *testing.T) {
	rx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	rx.Stop()
	if done := rx.step(); !done {
		t.Fatalf("expected step to report done after Stop")
	}
}

func TestPollTimeoutReflectsNextTimer(t *testing.T) {
	rx, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rx.Close()

	if got := rx.pollTimeout(); got != -1 {
		t.Fatalf("expected -1 (block) with no timers, got %d", got)
	}

	rx.Timers().Add(time.Now().Add(50*time.Millisecond), func(any) {}, nil)
	got := rx.pollTimeout()
	if got < 0 || got > 50 {
		t.Fatalf("expected poll timeout in [0,50]ms, got %d", got)
	}
}

/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package reactor implements the single-threaded cooperative multiplexer
// (C4, spec.md §4.4): one goroutine owns every registered Member's fd and
// buffer cursors and drives them through a poll loop, a self-pipe wakeup,
// and the timer wheel (internal/timer).
package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/timer"
)

// Interest describes which directions a Member wants polled this
// iteration (spec.md §4.4 step 3).
type Interest struct {
	Read  bool
	Write bool
}

// Member is anything the reactor multiplexes: console drivers, clients
// and the listen socket all implement it identically from the loop's
// point of view.
type Member interface {
	// FD returns the current file descriptor, or -1 if the member holds
	// none right now (e.g. a telnet object mid-backoff).
	FD() int
	// Interest reports this iteration's desired poll events.
	Interest() Interest
	// OnReadable is called when the fd is readable. ok=false means the
	// member is dead and must be removed from the loop (spec.md §4.4
	// step 6 "shutdown_obj returns destroy"); for reconnecting drivers
	// the member itself decides to keep its slot and simply returns fd
	// -1 from then on, arming its own backoff timer.
	OnReadable() (ok bool)
	// OnWritable is called when the fd is writable and Interest().Write
	// was true.
	OnWritable() (ok bool)
}

// Reactor owns the member set, the self-pipe, and the timer wheel.
type Reactor struct {
	mu      sync.Mutex
	members map[Member]struct{}

	wheel *timer.Wheel

	wakeR int
	wakeW int

	reconfigure bool
	resetFn     func() // invoked once per iteration when a reset is pending (C14)
	resetPend   bool

	onReconfigure func() // reopen console logfiles (spec.md §4.4 step 1)

	stop bool
}

// New creates a Reactor with its self-pipe already armed. The caller must
// call Close when the loop exits.
func New(onReconfigure func()) (*Reactor, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	r := &Reactor{
		members:       make(map[Member]struct{}),
		wakeR:         fds[0],
		wakeW:         fds[1],
		onReconfigure: onReconfigure,
	}
	r.wheel = timer.NewWheel(r.Wake)
	return r, nil
}

// Timers returns the reactor's timer wheel, for components that need to
// schedule backoff/reconnect/idle callbacks.
func (r *Reactor) Timers() *timer.Wheel { return r.wheel }

// Register adds m to the member set, to be polled from the next
// iteration onward.
func (r *Reactor) Register(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m] = struct{}{}
	r.wakeLocked()
}

// Unregister removes m, e.g. once its shutdown has been fully processed.
func (r *Reactor) Unregister(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, m)
}

// RequestReconfigure sets the reconfigure flag consumed at the top of the
// next iteration (spec.md §4.4 step 1); safe to call from a signal
// handler via an atomic flag elsewhere, as it only touches a mutex-
// protected bool and wakes the self-pipe.
func (r *Reactor) RequestReconfigure() {
	r.mu.Lock()
	r.reconfigure = true
	r.mu.Unlock()
	r.Wake()
}

// RequestReset arranges for fn to run once at the end of the current (or
// next) iteration (spec.md §4.4 step 7, C14 reset-command dispatch).
func (r *Reactor) RequestReset(fn func()) {
	r.mu.Lock()
	r.resetFn = fn
	r.resetPend = true
	r.mu.Unlock()
	r.Wake()
}

// Stop causes Run to return after completing its current iteration.
func (r *Reactor) Stop() {
	r.mu.Lock()
	r.stop = true
	r.mu.Unlock()
	r.Wake()
}

// Wake writes a single byte to the self-pipe, interrupting a blocked
// poll (spec.md §4.4: "a self-pipe ... is always in the read set;
// writing a byte to it is how other contexts wake the loop").
func (r *Reactor) Wake() {
	var b [1]byte
	_, _ = unix.Write(r.wakeW, b[:])
}

// Close releases the self-pipe fds.
func (r *Reactor) Close() error {
	_ = unix.Close(r.wakeW)
	return unix.Close(r.wakeR)
}

// snapshot is a Member paired with the fd/interest it reported at the
// start of this iteration, so OnReadable/OnWritable are driven off a
// consistent view even if the member set mutates mid-iteration.
type snapshot struct {
	m   Member
	fd  int
	in  Interest
}

// Run drives the loop until Stop is called. It never returns on its own;
// the caller typically runs it in the main goroutine.
func (r *Reactor) Run() {
	for {
		if r.step() {
			return
		}
	}
}

// step runs exactly one iteration of the algorithm in spec.md §4.4 and
// reports whether the loop should now exit. Split out as a method (rather
// than inlined in Run) so tests can single-step it deterministically.
func (r *Reactor) step() (done bool) {
	r.mu.Lock()
	if r.stop {
		r.mu.Unlock()
		return true
	}
	if r.reconfigure {
		r.reconfigure = false
		fn := r.onReconfigure
		r.mu.Unlock()
		if fn != nil {
			fn()
		}
	} else {
		r.mu.Unlock()
	}

	r.wheel.Dispatch(time.Now())

	snaps := r.buildInterestSet()

	pollFds := make([]unix.PollFd, 0, len(snaps)+1)
	pollFds = append(pollFds, unix.PollFd{Fd: int32(r.wakeR), Events: unix.POLLIN})
	idx := make([]int, 0, len(snaps))
	for i, s := range snaps {
		if s.fd < 0 {
			continue
		}
		var ev int16
		if s.in.Read {
			ev |= unix.POLLIN
		}
		if s.in.Write {
			ev |= unix.POLLOUT
		}
		if ev == 0 {
			continue
		}
		pollFds = append(pollFds, unix.PollFd{Fd: int32(s.fd), Events: ev})
		idx = append(idx, i)
	}

	timeout := r.pollTimeout()
	_, err := unix.Poll(pollFds, timeout)
	if err != nil && err != unix.EINTR {
		// A poll error on a well-formed fd set indicates a fd was
		// closed out from under us; fall through and let the next
		// iteration's interest rebuild reconcile state.
	}

	if pollFds[0].Revents&unix.POLLIN != 0 {
		r.drainSelfPipe()
	}

	for i, fdi := range idx {
		pf := pollFds[i+1]
		if pf.Revents == 0 {
			continue
		}
		s := snaps[fdi]
		ok := true
		if pf.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ok = s.m.OnReadable()
		}
		if ok && pf.Revents&unix.POLLOUT != 0 {
			ok = s.m.OnWritable()
		}
		if !ok {
			r.Unregister(s.m)
		}
	}

	r.runPendingReset()
	return false
}

func (r *Reactor) buildInterestSet() []snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]snapshot, 0, len(r.members))
	for m := range r.members {
		out = append(out, snapshot{m: m, fd: m.FD(), in: m.Interest()})
	}
	return out
}

func (r *Reactor) pollTimeout() int {
	at, ok := r.wheel.NextFireTime()
	if !ok {
		return -1 // block indefinitely until fd readiness or self-pipe wake
	}
	d := time.Until(at)
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^int32(0)) {
		ms = int64(^int32(0))
	}
	return int(ms)
}

func (r *Reactor) drainSelfPipe() {
	var buf [64]byte
	for {
		n, err := unix.Read(r.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
		if n < len(buf) {
			return
		}
	}
}

func (r *Reactor) runPendingReset() {
	r.mu.Lock()
	if !r.resetPend {
		r.mu.Unlock()
		return
	}
	fn := r.resetFn
	r.resetFn = nil
	r.resetPend = false
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

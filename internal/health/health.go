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

// Package health unifies the teacher's separate monitor and status
// concepts into one per-console DOWN/PENDING/UP registry: a single
// StateProvider reports the same driver.State every reconnecting driver
// already tracks, and Tracker keeps a timestamped snapshot per console
// name for logging and for the /metrics gauge (internal/metrics).
package health

import (
	"sync"
	"time"

	"github.com/dun/conman-sub000/internal/driver"
)

// StateProvider is satisfied by every reconnecting console driver
// (telnet, unixsock, process, ipmi); serial and testgen have no
// reconnect state machine and are not tracked.
type StateProvider interface {
	State() driver.State
}

// Entry is one console's last-observed state and when it was recorded.
type Entry struct {
	State     driver.State
	Since     time.Time
	Transitions int
}

// Tracker records the most recent state per console name.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Observe polls p and records a new Entry if the state changed since
// the last Observe call for name; returns the resulting Entry either
// way.
func (t *Tracker) Observe(name string, p StateProvider) Entry {
	st := p.State()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.entries[name]
	if ok && prev.State == st {
		return prev
	}
	e := Entry{State: st, Since: time.Now()}
	if ok {
		e.Transitions = prev.Transitions + 1
	}
	t.entries[name] = e
	return e
}

// Get returns the last recorded Entry for name.
func (t *Tracker) Get(name string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[name]
	return e, ok
}

// Snapshot returns a copy of every tracked console's Entry.
func (t *Tracker) Snapshot() map[string]Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Entry, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

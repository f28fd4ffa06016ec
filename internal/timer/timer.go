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

// Package timer implements the absolute-time timer wheel (C3, spec.md
// §4.3): a sorted singly-linked list of callbacks, with O(1) dispatch at
// the head and a wake signal fired when insertion changes the head.
package timer

import (
	"sync"
	"time"

	"github.com/dun/conman-sub000/internal/xatomic"
)

// ID identifies a scheduled timer; 0 is never issued and means "invalid".
type ID uint64

// Callback is invoked on fire with the argument passed to Add.
type Callback func(arg any)

type entry struct {
	id   ID
	at   time.Time
	fn   Callback
	arg  any
	next *entry
}

// Wheel is the sorted timer list. A Wheel is safe for concurrent Add/
// Cancel/Dispatch; Dispatch releases its lock across every callback
// invocation so callbacks may themselves Add or Cancel timers, including
// ones belonging to their own object.
type Wheel struct {
	mu      sync.Mutex
	head    *entry
	ids     xatomic.Counter
	onWake  func() // signals the self-pipe so poll can rearm (spec.md §4.4/§9)
}

// NewWheel returns an empty Wheel. onWake, if non-nil, is called whenever
// an insertion changes the earliest fire time (e.g. a brand-new head),
// so the reactor can interrupt a blocking poll.
func NewWheel(onWake func()) *Wheel {
	return &Wheel{onWake: onWake}
}

// Add schedules fn(arg) to run at absolute time `at`, returning the new
// timer's id.
func (w *Wheel) Add(at time.Time, fn Callback, arg any) ID {
	e := &entry{id: ID(w.ids.Next()), at: at, fn: fn, arg: arg}

	w.mu.Lock()
	wasHead := w.head == nil || at.Before(w.head.at)
	w.insert(e)
	w.mu.Unlock()

	if wasHead && w.onWake != nil {
		w.onWake()
	}
	return e.id
}

// AddAfter is sugar for Add(time.Now().Add(d), ...).
func (w *Wheel) AddAfter(d time.Duration, fn Callback, arg any) ID {
	return w.Add(time.Now().Add(d), fn, arg)
}

func (w *Wheel) insert(e *entry) {
	if w.head == nil || e.at.Before(w.head.at) {
		e.next = w.head
		w.head = e
		return
	}
	cur := w.head
	for cur.next != nil && !e.at.Before(cur.next.at) {
		cur = cur.next
	}
	e.next = cur.next
	cur.next = e
}

// Cancel removes the timer with the given id, if still pending. O(n)
// linear scan, matching spec.md §4.3.
func (w *Wheel) Cancel(id ID) bool {
	if id == 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.head == nil {
		return false
	}
	if w.head.id == id {
		w.head = w.head.next
		return true
	}
	prev := w.head
	for cur := prev.next; cur != nil; prev, cur = cur, cur.next {
		if cur.id == id {
			prev.next = cur.next
			return true
		}
	}
	return false
}

// NextFireTime returns the fire time of the earliest pending timer, and
// false if the wheel is empty; used by the reactor to bound its poll
// timeout.
func (w *Wheel) NextFireTime() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.head == nil {
		return time.Time{}, false
	}
	return w.head.at, true
}

// Dispatch fires every timer whose time has passed as of now, in
// ascending fire-time order, detaching each one before invoking its
// callback. Only timers already pending and due when Dispatch begins are
// fired; a timer that a callback adds (or re-adds) waits for the next
// Dispatch even if it is already due (spec.md §4.3/§4.4: "Timers whose
// fire time has passed when the loop begins iteration are all dispatched
// before poll is armed again").
func (w *Wheel) Dispatch(now time.Time) int {
	w.mu.Lock()
	due := make(map[ID]bool)
	for e := w.head; e != nil && !e.at.After(now); e = e.next {
		due[e.id] = true
	}
	w.mu.Unlock()
	fired := 0
	for {
		w.mu.Lock()
		var prev *entry
		e := w.head
		for e != nil && !e.at.After(now) && !due[e.id] {
			prev, e = e, e.next
		}
		if e == nil || e.at.After(now) {
			w.mu.Unlock()
			break
		}
		if prev == nil {
			w.head = e.next
		} else {
			prev.next = e.next
		}
		w.mu.Unlock()

		e.fn(e.arg)
		fired++
	}
	return fired
}

// Len returns the number of pending timers (diagnostic use only).
func (w *Wheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for e := w.head; e != nil; e = e.next {
		n++
	}
	return n
}

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

// Package driver holds the reconnect-state machine shared by the
// telnet (C6), unix-socket (C7), process (C8) and IPMI (C9) drivers
// (spec.md §4.6-§4.9, §8): DOWN schedules a backoff timer; on entering
// UP a debounce timer is armed that, if the connection survives
// T_min seconds, resets the backoff delay to zero.
package driver

import (
	"time"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/timer"
)

// State is the connection lifecycle shared by every reconnecting
// driver. Serial and test drivers don't use it (spec.md §4.5: "serial
// devices never disconnect").
type State int

const (
	Down State = iota
	Pending
	Up
)

func (s State) String() string {
	switch s {
	case Down:
		return "DOWN"
	case Pending:
		return "PENDING"
	case Up:
		return "UP"
	default:
		return "UNKNOWN"
	}
}

// Reconnect bundles the backoff policy, current delay, and the timer
// wheel handles needed to drive DOWN->PENDING->UP->DOWN transitions.
type Reconnect struct {
	Policy     backoff.Policy
	Wheel      *timer.Wheel
	delay      time.Duration
	timerID    timer.ID
	debounceID timer.ID
}

// NewReconnect returns a Reconnect bound to wheel with the given
// backoff policy.
func NewReconnect(wheel *timer.Wheel, policy backoff.Policy) *Reconnect {
	return &Reconnect{Policy: policy, Wheel: wheel}
}

// ScheduleRetry arms a timer after the next backoff delay (doubling
// from the previous one) that invokes fn; returns the chosen delay. A
// pending debounce timer is cancelled, since the connection did not
// survive T_min.
func (r *Reconnect) ScheduleRetry(fn func()) time.Duration {
	r.Wheel.Cancel(r.debounceID)
	r.delay = r.Policy.Next(r.delay)
	r.timerID = r.Wheel.AddAfter(r.delay, func(any) { fn() }, nil)
	return r.delay
}

// ArmDebounce schedules the T_min debounce timer that, on fire, resets
// the backoff delay to zero (spec.md §4.6 "reset_delay").
func (r *Reconnect) ArmDebounce() {
	r.debounceID = r.Wheel.AddAfter(r.Policy.Min, func(any) { r.delay = 0 }, nil)
}

// CancelPendingRetry cancels an armed retry timer, e.g. on manual
// reconfigure-triggered reconnect.
func (r *Reconnect) CancelPendingRetry() {
	r.Wheel.Cancel(r.timerID)
}

// CurrentDelay reports the delay that was last scheduled (0 before the
// first failure or after a debounce reset).
func (r *Reconnect) CurrentDelay() time.Duration { return r.delay }

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

// Package testgen implements the synthetic test console driver (C10,
// spec.md §4.10): a purely timer-driven byte generator used to
// soak-test the multiplexer without real hardware or network peers.
package testgen

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/timer"
)

// Options configures the generator (spec.md §4.10: "bytes-per-burst,
// min/max inter-burst delay, probability (0..100) of producing a burst
// per tick").
type Options struct {
	BytesPerBurst int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	Probability   int // 0..100
}

// firstPrintable/lastPrintable bound the cycling counter to the
// printable ASCII range.
const (
	firstPrintable = 0x20
	lastPrintable  = 0x7E
)

// Driver implements object.Driver. It is not a reactor.Member: it has
// no fd, and is driven entirely by the timer wheel.
type Driver struct {
	mu sync.Mutex

	Opts Options

	obj     *object.Object
	wheel   *timer.Wheel
	rng     *rand.Rand
	counter byte
	timerID timer.ID
	running bool
}

// New returns a test driver bound to obj. seed selects the
// pseudo-random sequence used for the per-tick burst probability
// check; callers pass a fixed seed in tests for determinism.
func New(obj *object.Object, wheel *timer.Wheel, opts Options, seed int64) *Driver {
	return &Driver{
		obj: obj, wheel: wheel, Opts: opts,
		rng: rand.New(rand.NewSource(seed)), counter: firstPrintable,
	}
}

func (d *Driver) Name() string     { return "test" }
func (d *Driver) SendBreak() error { return nil }

// Start arms the first tick (spec.md §4.10).
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.armNextLocked()
}

// Stop cancels any pending tick.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	d.wheel.Cancel(d.timerID)
}

func (d *Driver) armNextLocked() {
	delay := d.Opts.MinDelay
	if d.Opts.MaxDelay > d.Opts.MinDelay {
		delay += time.Duration(d.rng.Int63n(int64(d.Opts.MaxDelay - d.Opts.MinDelay)))
	}
	d.timerID = d.wheel.AddAfter(delay, func(any) { d.tick() }, nil)
}

// tick produces up to BytesPerBurst bytes with Probability% chance
// (spec.md §4.10), then rearms for the next burst.
func (d *Driver) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}

	if d.rng.Intn(100) < d.Opts.Probability {
		buf := make([]byte, d.Opts.BytesPerBurst)
		for i := range buf {
			buf[i] = d.counter
			d.counter++
			if d.counter > lastPrintable {
				d.counter = firstPrintable
			}
		}
		d.obj.Buf.Write(buf, false)
	}
	d.armNextLocked()
}

// Describe reports the driver's configuration for diagnostics.
func (d *Driver) Describe() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("test(burst=%d prob=%d%% delay=%s..%s)",
		d.Opts.BytesPerBurst, d.Opts.Probability, d.Opts.MinDelay, d.Opts.MaxDelay)
}

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

// Package xatomic provides the lock-free flags the signal handlers and the
// IPMI worker-thread callback are allowed to touch. Signal handlers must
// never allocate or call logging routines; they may only flip one of
// these flags, which the reactor polls at the top of its loop.
package xatomic

import "sync/atomic"

// Flag is a boolean settable and readable without locking.
type Flag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *Flag) Set() { f.v.Store(true) }

// Clear lowers the flag.
func (f *Flag) Clear() { f.v.Store(false) }

// IsSet reports the current value.
func (f *Flag) IsSet() bool { return f.v.Load() }

// TestAndClear atomically reads the flag and clears it, returning the
// value it had before clearing. Used by the reactor to consume a
// reconfigure/shutdown request exactly once per iteration.
func (f *Flag) TestAndClear() bool {
	return f.v.Swap(false)
}

// Counter is a simple atomic monotonically-assignable counter, used for
// timer IDs (spec.md §3: "IDs monotonically increase from 1 and wrap over
// 0").
type Counter struct {
	v atomic.Uint64
}

// Next returns the next id, starting at 1 and wrapping to 1 if it would
// otherwise produce 0.
func (c *Counter) Next() uint64 {
	n := c.v.Add(1)
	if n == 0 {
		n = c.v.Add(1)
	}
	return n
}

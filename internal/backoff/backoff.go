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

// Package backoff implements the exponential reconnect delay shared by the
// telnet, unix-socket, process and IPMI drivers (spec.md §4.6, §8): the
// delay starts at tMin, doubles on each failure up to tMax, and a debounce
// timer resets it to zero after tMin seconds of continuous UP state.
package backoff

import (
	"fmt"
	"time"
)

// Policy holds the minimum and maximum reconnect delay.
type Policy struct {
	Min time.Duration
	Max time.Duration
}

// Next computes the next delay given the previous one. A previous of 0
// (the debounced / first-attempt state) returns Min; otherwise the delay
// doubles, capped at Max.
func (p Policy) Next(previous time.Duration) time.Duration {
	if previous <= 0 {
		return p.Min
	}
	d := previous * 2
	if d > p.Max || d <= 0 {
		return p.Max
	}
	return d
}

// Sequence returns the first n delays produced by repeatedly calling Next,
// starting from a DOWN state (previous=0). Exposed mainly for tests that
// assert the exact progression called out in spec.md §8.
func (p Policy) Sequence(n int) []time.Duration {
	out := make([]time.Duration, 0, n)
	d := time.Duration(0)
	for i := 0; i < n; i++ {
		d = p.Next(d)
		out = append(out, d)
	}
	return out
}

// FormatIdle renders the idle duration that the BUSY_CONSOLES detail
// line places inside its "(idle ...)" suffix (spec.md S2): "0s", "1m32s".
func FormatIdle(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

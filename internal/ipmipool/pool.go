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

// Package ipmipool bounds the number of concurrent IPMI SOL worker
// goroutines (spec.md §4.9: "worker-thread count of
// ceil(numConsoles / perThreadLimit) clamped to a library-defined
// maximum"). Each IPMI driver acquires a slot before submitting a
// connect and releases it once the engine callback returns.
package ipmipool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPerThreadLimit mirrors libipmiconsole's common default of one
// worker thread per eight consoles.
const DefaultPerThreadLimit = 8

// DefaultMaxWorkers is the clamp applied regardless of console count.
const DefaultMaxWorkers = 64

// Size computes ceil(numConsoles/perThreadLimit) clamped to [1, max].
func Size(numConsoles, perThreadLimit, max int) int {
	if perThreadLimit <= 0 {
		perThreadLimit = DefaultPerThreadLimit
	}
	if max <= 0 {
		max = DefaultMaxWorkers
	}
	n := (numConsoles + perThreadLimit - 1) / perThreadLimit
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	return n
}

// Pool is a weighted semaphore bounding in-flight IPMI engine
// submissions, sized once at daemon startup from the console count.
type Pool struct {
	sem *semaphore.Weighted
	n   int64
}

// New returns a pool sized for numConsoles consoles.
func New(numConsoles, perThreadLimit, max int) *Pool {
	n := int64(Size(numConsoles, perThreadLimit, max))
	return &Pool{sem: semaphore.NewWeighted(n), n: n}
}

// Cap reports the configured worker-slot count.
func (p *Pool) Cap() int { return int(p.n) }

// Acquire blocks until a worker slot is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire returns false immediately if no slot is free.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release returns a worker slot to the pool.
func (p *Pool) Release() {
	p.sem.Release(1)
}

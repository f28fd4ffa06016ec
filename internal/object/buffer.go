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

// Package object implements the per-object circular output buffer (C1) and
// the reader/writer link graph (C2) described in spec.md §3-4.2.
package object

import "sync"

// Buffer is a fixed-capacity circular byte buffer with separate input and
// output cursors and a wrap flag, matching spec.md §3/§4.1. Capacity usable
// is cap-1 byte so that inPtr==outPtr unambiguously means "empty".
type Buffer struct {
	mu    sync.Mutex
	data  []byte
	in    int
	out   int
	wrap  bool
	quiet bool
	eof   bool
}

// NewBuffer allocates a buffer of the given capacity (B in spec.md, >=8KiB
// recommended; the zero value is unusable).
func NewBuffer(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the raw byte slice length (B). Usable capacity is Cap()-1.
func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// SetQuiet toggles whether informational writes (isInfo=true) are dropped.
func (b *Buffer) SetQuiet(q bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quiet = q
}

// Quiet reports the current quiet setting.
func (b *Buffer) Quiet() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quiet
}

// SetEOF marks the buffer's owning object as having hit EOF/error; further
// writes become no-ops and Drain will report nothing left to send.
func (b *Buffer) SetEOF() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eof = true
	b.in, b.out, b.wrap = 0, 0, false
}

// EOF reports whether SetEOF was called.
func (b *Buffer) EOF() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eof
}

// ClearEOF resets the EOF flag, used when an object is reopened after a
// successful reconnect.
func (b *Buffer) ClearEOF() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eof = false
}

// Len returns the number of unread bytes currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.len()
}

func (b *Buffer) len() int {
	if b.in >= b.out {
		return b.in - b.out
	}
	return len(b.data) - b.out + b.in
}

// Write appends up to len(p) bytes, matching write_obj_data's semantics
// (spec.md §4.1): capped to cap-1 bytes total pending; isInfo writes are
// dropped if the buffer is in quiet mode; writes to an EOF buffer are
// no-ops; oldest bytes are overwritten (advancing out) when the write
// would overtake the reader cursor, and overrun is reported via the
// returned bool so the caller can log it at debug level.
func (b *Buffer) Write(p []byte, isInfo bool) (overran bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eof {
		return false
	}
	if isInfo && b.quiet {
		return false
	}

	cap := len(b.data)
	usable := cap - 1

	n := len(p)
	if n > usable {
		// Only the tail end matters; earlier bytes would be
		// immediately overwritten anyway.
		p = p[n-usable:]
		n = usable
		overran = true
	}

	free := usable - b.len()
	if n > free {
		overran = true
	}

	for _, c := range p {
		b.data[b.in] = c
		b.in = (b.in + 1) % cap
		if b.in == b.out {
			// Overtook the reader: drop the oldest byte.
			b.out = (b.out + 1) % cap
			b.wrap = true
		}
	}

	return overran
}

// PeekDrain returns the next contiguous chunk of unread bytes suitable for
// a single non-blocking write, without advancing the output cursor. The
// wrap-around remainder (if any) is left for the next call, matching
// drain_obj's "one chunk per pass" behaviour (spec.md §4.1).
func (b *Buffer) PeekDrain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peekDrain()
}

func (b *Buffer) peekDrain() []byte {
	if b.in == b.out {
		return nil
	}
	if b.in > b.out {
		return append([]byte(nil), b.data[b.out:b.in]...)
	}
	return append([]byte(nil), b.data[b.out:]...)
}

// Advance moves the output cursor forward by n bytes (n must be <= the
// length of the last PeekDrain result), acknowledging that n bytes were
// successfully written to the underlying fd.
func (b *Buffer) Advance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cap := len(b.data)
	b.out = (b.out + n) % cap
}

// HasPending reports whether the buffer has bytes available to drain.
func (b *Buffer) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.in != b.out
}

// Wrapped reports whether the buffer has ever overwritten unread data
// (used by the logfile replay window computation, spec.md §4.12).
func (b *Buffer) Wrapped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wrap
}

// Tail returns the last n bytes of buffered output (n is clamped to the
// available data), used by the log-replay command (ESC L, spec.md §4.12).
// If the buffer has not wrapped, this is everything written since the
// buffer was created (bufInPtr - bufBase); otherwise it is at most cap-1
// bytes.
func (b *Buffer) Tail(n int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	avail := b.len()
	if !b.wrap {
		// Unwrapped: everything from the start of the buffer (cursor
		// 0) up to `in` is valid, even bytes already read by some
		// readers, since Tail is about what was ever written, not
		// what remains unread by this buffer's own out cursor.
		avail = b.in
		if b.in < b.out {
			avail = len(b.data) - 1
		}
	} else {
		avail = len(b.data) - 1
	}

	if n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}

	cap := len(b.data)
	start := (b.in - n + cap) % cap
	out := make([]byte, n)
	if start+n <= cap {
		copy(out, b.data[start:start+n])
	} else {
		k := cap - start
		copy(out, b.data[start:])
		copy(out[k:], b.data[:n-k])
	}
	return out
}

// Reset empties the buffer, used when an object is torn down or reopened.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.in, b.out, b.wrap = 0, 0, false
}

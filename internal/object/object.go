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

package object

import (
	"time"

	"github.com/dun/conman-sub000/internal/xctx"
)

// Kind discriminates the variant payload an Object carries (spec.md §3).
type Kind uint8

const (
	KindClient Kind = iota
	KindLogfile
	KindSerial
	KindTelnet
	KindUnixSock
	KindProcess
	KindIPMI
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindLogfile:
		return "logfile"
	case KindSerial:
		return "serial"
	case KindTelnet:
		return "telnet"
	case KindUnixSock:
		return "unixsock"
	case KindProcess:
		return "process"
	case KindIPMI:
		return "ipmi"
	case KindTest:
		return "test"
	default:
		return "unknown"
	}
}

// Driver is implemented by every console driver variant (C5-C10) and is
// held in a console object's Driver field. Whether an object is
// console-bearing (as opposed to a client or a logfile) is decided by its
// Kind, not by this field.
type Driver interface {
	// Name identifies the driver implementation, e.g. "serial", "telnet".
	Name() string
	// SendBreak issues a break condition if the underlying medium
	// supports one (serial tcsendbreak, telnet IAC BREAK, IPMI library
	// call); a no-op driver returns nil without error (spec.md §4.12).
	SendBreak() error
}

// Object is the unit of I/O multiplexed by the reactor (spec.md §3).
type Object struct {
	Name string
	Kind Kind

	Buf *Buffer

	FD     int // -1 when closed
	LastRW time.Time

	GotEOF   bool
	GotReset bool

	Readers []*Object // objects receiving bytes read from this object
	Writers []*Object // objects feeding into this object's buffer

	Driver Driver

	Attrs *xctx.Store[string]

	Opened time.Time
}

// NewObject allocates an Object with a fresh buffer of the given capacity.
func NewObject(name string, kind Kind, bufCap int) *Object {
	return &Object{
		Name:  name,
		Kind:  kind,
		Buf:   NewBuffer(bufCap),
		FD:    -1,
		Attrs: xctx.New[string](),
	}
}

// IsConsole reports whether this object is one of the console driver
// variants (as opposed to client or logfile), matching the invariant in
// spec.md §3 that only console objects may appear in a logfile's Writers.
func (o *Object) IsConsole() bool {
	switch o.Kind {
	case KindSerial, KindTelnet, KindUnixSock, KindProcess, KindIPMI, KindTest:
		return true
	default:
		return false
	}
}

// IsIdle reports whether Readers and Writers are both empty, the
// condition spec.md §3 says marks a client for destruction once GotEOF is
// set and its buffer has drained.
func (o *Object) IsIdle() bool {
	return len(o.Readers) == 0 && len(o.Writers) == 0
}

func (o *Object) hasReader(dst *Object) bool {
	for _, r := range o.Readers {
		if r == dst {
			return true
		}
	}
	return false
}

func (o *Object) hasWriter(src *Object) bool {
	for _, w := range o.Writers {
		if w == src {
			return true
		}
	}
	return false
}

func removeObj(list []*Object, target *Object) []*Object {
	out := list[:0]
	for _, o := range list {
		if o != target {
			out = append(out, o)
		}
	}
	return out
}

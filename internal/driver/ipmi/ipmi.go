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

// Package ipmi implements the IPMI Serial-Over-LAN console driver (C9,
// spec.md §4.9): a worker submits a connect request to an Engine, which
// calls back (from its own goroutine, standing in for the library's
// worker thread) with either a ready fd or an error. The callback takes
// the driver's mutex, inspects state, and either completes to UP or
// reschedules with backoff, exactly as the main loop never blocks on
// the engine itself.
package ipmi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/driver"
	"github.com/dun/conman-sub000/internal/hexkey"
	"github.com/dun/conman-sub000/internal/ipmipool"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/timer"
)

// Privilege is the IPMI session privilege level.
type Privilege int

const (
	PrivilegeDefault Privilege = iota
	PrivilegeUser
	PrivilegeOperator
	PrivilegeAdmin
)

// Workaround flags, OR'd together from the named tokens in IPMIOPTS
// (spec.md §6), mirroring libipmiconsole's IPMICONSOLE_WORKAROUND_*.
const (
	WorkaroundAuthCap uint32 = 1 << iota
	WorkaroundIntel20Session
	WorkaroundSupermicro20Session
	WorkaroundSun20Session
	WorkaroundOpenSessionPrivilege
	WorkaroundNonEmptyIntegrityCheck
	WorkaroundIgnoreSOLPayloadSize
	WorkaroundIgnoreSOLPort
	WorkaroundSkipSOLActivationStatus
)

// Credentials holds the per-console IPMI connection parameters parsed
// from IPMIOPTS (spec.md §6: "U:value,P:value,K:value,L:value,C:value,
// W:value").
type Credentials struct {
	Username    string
	Password    string
	Kg          []byte // decoded via internal/hexkey from a raw or 0x-hex string
	Privilege   Privilege
	CipherSuite int
	Workaround  uint32
}

// ParseKg decodes the K_g key field: a literal "0x"-prefixed hex string
// decodes via internal/hexkey; any other value is taken as the raw key
// bytes (spec.md §4.9 "K_g (raw or hex-decoded via a 0x-prefixed
// parser)").
func ParseKg(s string) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return hexkey.Decode(s[2:])
	}
	return []byte(s), nil
}

// Result is delivered by the Engine to a Submit callback.
type Result struct {
	FD  int
	Err error
}

// Engine abstracts the external SOL library (spec.md §4.9: "an external
// SOL library engine started with a worker-thread count..."). Submit
// must invoke cb exactly once, asynchronously, from a goroutine
// standing in for the library's own worker thread.
type Engine interface {
	Submit(ctx context.Context, host string, creds Credentials, cb func(Result))
	Break(fd int) error
	Close(fd int)
}

// Driver implements object.Driver and reactor.Member for an IPMI SOL
// console.
type Driver struct {
	mu sync.Mutex

	Host  string
	Creds Credentials

	obj    *object.Object
	engine Engine
	pool   *ipmipool.Pool
	rc     *driver.Reconnect
	state  driver.State
	fd     int
	cancel context.CancelFunc
}

// New returns an IPMI driver bound to obj, using engine for SOL I/O and
// pool to bound concurrent engine submissions (spec.md §4.9 worker
// count).
func New(obj *object.Object, wheel *timer.Wheel, host string, creds Credentials, engine Engine, pool *ipmipool.Pool) *Driver {
	return &Driver{
		Host: host, Creds: creds, obj: obj, engine: engine, pool: pool, fd: -1, state: driver.Down,
		rc: driver.NewReconnect(wheel, backoff.Policy{Min: 5 * time.Second, Max: 600 * time.Second}),
	}
}

func (d *Driver) Name() string { return "ipmi" }

// SendBreak issues a serial-break via the engine (spec.md §4.9 "a
// serial-break is generated via a library call and is the only
// mutating operation the main thread performs on an engine context
// other than create/destroy").
func (d *Driver) SendBreak() error {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()
	if fd < 0 {
		return fmt.Errorf("ipmi: console not connected")
	}
	return d.engine.Break(fd)
}

func (d *Driver) FD() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd
}

func (d *Driver) Interest() reactor.Interest {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != driver.Up {
		return reactor.Interest{}
	}
	return reactor.Interest{Read: true, Write: d.obj.Buf.HasPending()}
}

// Connect creates a fresh engine context and submits it, entering
// PENDING immediately; the engine calls back later (spec.md §4.9
// "submits to the engine with this as callback argument").
func (d *Driver) Connect() error {
	d.mu.Lock()
	if d.state == driver.Pending {
		d.mu.Unlock()
		return nil
	}
	d.state = driver.Pending
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()

	if !d.pool.TryAcquire() {
		if err := d.pool.Acquire(ctx); err != nil {
			d.scheduleReconnect()
			return err
		}
	}

	d.engine.Submit(ctx, d.Host, d.Creds, func(res Result) {
		d.pool.Release()
		d.onEngineCallback(res)
	})
	return nil
}

// onEngineCallback is connect_ipmi_obj's callback half: it takes the
// per-object mutex, inspects state, and either completes to UP or
// reschedules with backoff (spec.md §4.9).
func (d *Driver) onEngineCallback(res Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != driver.Pending {
		if res.Err == nil {
			d.engine.Close(res.FD)
		}
		return
	}
	if res.Err != nil {
		d.state = driver.Down
		d.rc.ScheduleRetry(func() { _ = d.Connect() })
		return
	}

	d.fd = res.FD
	d.state = driver.Up
	d.obj.Buf.ClearEOF()
	d.rc.ArmDebounce()
}

func (d *Driver) scheduleReconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = driver.Down
	d.rc.ScheduleRetry(func() { _ = d.Connect() })
}

func (d *Driver) OnReadable() bool {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()
	if fd < 0 {
		return true
	}

	var buf [4096]byte
	n, err := readFD(fd, buf[:])
	if n <= 0 || (err != nil && !isAgain(err)) {
		d.teardown()
		return true
	}
	d.obj.Buf.Write(buf[:n], false)
	return true
}

func (d *Driver) OnWritable() bool {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()
	if fd < 0 {
		return true
	}

	chunk := d.obj.Buf.PeekDrain()
	if len(chunk) == 0 {
		return true
	}
	n, err := writeFD(fd, chunk)
	if n > 0 {
		d.obj.Buf.Advance(n)
	}
	if err != nil && !isAgain(err) {
		d.teardown()
	}
	return true
}

// teardown closes the engine context and reschedules a reconnect
// (spec.md §4.9 DOWN transition).
func (d *Driver) teardown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.fd >= 0 {
		d.engine.Close(d.fd)
		d.fd = -1
	}
	d.state = driver.Down
	d.rc.ScheduleRetry(func() { _ = d.Connect() })
}

// State reports the current lifecycle state.
func (d *Driver) State() driver.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

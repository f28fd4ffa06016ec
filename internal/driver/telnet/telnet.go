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

package telnet

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/driver"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/timer"
)

// Driver implements object.Driver and reactor.Member for a telnet
// console (spec.md §4.6).
type Driver struct {
	mu sync.Mutex

	Host string
	Port int

	Keepalive bool

	obj *object.Object
	iac *Processor
	rc  *driver.Reconnect

	state driver.State
	fd    int

	logf func(format string, args ...any)
}

// New returns a telnet driver bound to obj, scheduling its timers on
// wheel with the spec-mandated 4s..1800s backoff policy.
func New(obj *object.Object, wheel *timer.Wheel, host string, port int, keepalive bool, logf func(string, ...any)) *Driver {
	d := &Driver{
		Host: host, Port: port, Keepalive: keepalive,
		obj: obj, fd: -1, state: driver.Down,
		rc:   driver.NewReconnect(wheel, backoff.Policy{Min: 4 * time.Second, Max: 1800 * time.Second}),
		iac:  NewProcessor(),
		logf: logf,
	}
	d.iac.Send = func(cmd, opt byte) {
		d.obj.Buf.Write(EncodeCommand(cmd, opt), true)
	}
	d.iac.Notice = func(format string, args ...any) {
		if d.logf != nil {
			d.logf("NOTICE "+format, args...)
		}
	}
	return d
}

func (d *Driver) Name() string { return "telnet" }

// SendBreak queues IAC BREAK (0xFF 0xF3) to the terminal server while the
// connection is UP; in any other state it does nothing.
func (d *Driver) SendBreak() error {
	d.mu.Lock()
	up := d.state == driver.Up
	d.mu.Unlock()
	if up {
		d.obj.Buf.Write([]byte{IAC, 0xF3}, true)
	}
	return nil
}

// FD implements reactor.Member.
func (d *Driver) FD() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd
}

// Interest implements reactor.Member (spec.md §4.4 step 3: "READ+WRITE
// for a telnet in PENDING").
func (d *Driver) Interest() reactor.Interest {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case driver.Pending:
		return reactor.Interest{Read: true, Write: true}
	case driver.Up:
		return reactor.Interest{Read: true, Write: d.obj.Buf.HasPending()}
	default:
		return reactor.Interest{}
	}
}

// Connect attempts the DOWN->PENDING (or DOWN->UP) transition (spec.md
// §4.6).
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ip, err := net.ResolveIPAddr("ip4", d.Host)
	if err != nil {
		d.scheduleReconnectLocked()
		return err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_OOBINLINE, 1)
	if d.Keepalive {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	}

	addr := &unix.SockaddrInet4{Port: d.Port}
	copy(addr.Addr[:], ip.IP.To4())

	err = unix.Connect(fd, addr)
	if err == nil {
		d.fd = fd
		d.transitionUp()
		return nil
	}
	if err == unix.EINPROGRESS {
		d.fd = fd
		d.state = driver.Pending
		return nil
	}
	_ = unix.Close(fd)
	d.scheduleReconnectLocked()
	return err
}

// CompletePending is called by the reactor when a PENDING fd becomes
// ready, reading SO_ERROR to decide UP vs DOWN (spec.md §4.6).
func (d *Driver) CompletePending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != driver.Pending {
		return
	}
	errno, gerr := unix.GetsockoptInt(d.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if gerr != nil || errno != 0 {
		_ = unix.Close(d.fd)
		d.fd = -1
		d.state = driver.Down
		d.scheduleReconnectLocked()
		return
	}
	d.transitionUp()
}

func (d *Driver) transitionUp() {
	d.state = driver.Up
	d.obj.Buf.ClearEOF()
	d.obj.Buf.Write(InitialOptionRequests(), true)
	d.rc.ArmDebounce()
}

func (d *Driver) scheduleReconnectLocked() {
	d.rc.ScheduleRetry(func() { _ = d.Connect() })
}

// OnReadable implements reactor.Member.
func (d *Driver) OnReadable() bool {
	d.mu.Lock()
	if d.state == driver.Pending {
		d.mu.Unlock()
		d.CompletePending()
		return true
	}
	fd := d.fd
	d.mu.Unlock()

	var buf [4096]byte
	n, err := unix.Read(fd, buf[:])
	if n <= 0 || (err != nil && err != unix.EAGAIN) {
		d.teardown()
		return true
	}
	decoded := d.iac.Feed(buf[:n])
	if len(decoded) > 0 {
		d.obj.Buf.Write(decoded, false)
	}
	return true
}

// OnWritable implements reactor.Member.
func (d *Driver) OnWritable() bool {
	d.mu.Lock()
	if d.state == driver.Pending {
		d.mu.Unlock()
		d.CompletePending()
		return true
	}
	fd := d.fd
	d.mu.Unlock()

	chunk := d.obj.Buf.PeekDrain()
	if len(chunk) == 0 {
		return true
	}
	n, err := unix.Write(fd, chunk)
	if n > 0 {
		d.obj.Buf.Advance(n)
	}
	if err != nil && err != unix.EAGAIN {
		d.teardown()
		return true
	}
	return true
}

func (d *Driver) teardown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd >= 0 {
		_ = unix.Close(d.fd)
	}
	d.fd = -1
	d.state = driver.Down
	d.iac = NewProcessor()
	d.iac.Send = func(cmd, opt byte) { d.obj.Buf.Write(EncodeCommand(cmd, opt), true) }
	d.scheduleReconnectLocked()
}

// State reports the current lifecycle state (diagnostics/tests).
func (d *Driver) State() driver.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Describe renders a human string for logs, e.g. "host:port".
func (d *Driver) Describe() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

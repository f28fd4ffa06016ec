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

// Package serial implements the tty console driver (C5, spec.md §4.5):
// open in raw mode with an advisory write-lock and the configured
// bps/data-bits/parity/stop-bits, using golang.org/x/sys/unix termios
// primitives directly (there is no reconnect state; serial devices
// never disconnect).
package serial

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
)

// Parity is the serial parity mode.
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// Options configures the termios applied on open (spec.md §4.5;
// SEROPTS format "bps,databits[NOE]stopbits" from spec.md §6).
type Options struct {
	BPS      int
	DataBits int // 5..8
	Parity   Parity
	StopBits int // 1..2
}

var bpsTable = map[int]uint32{
	50: unix.B50, 75: unix.B75, 110: unix.B110, 134: unix.B134,
	150: unix.B150, 200: unix.B200, 300: unix.B300, 600: unix.B600,
	1200: unix.B1200, 1800: unix.B1800, 2400: unix.B2400, 4800: unix.B4800,
	9600: unix.B9600, 19200: unix.B19200, 38400: unix.B38400,
	57600: unix.B57600, 115200: unix.B115200, 230400: unix.B230400,
	460800: unix.B460800,
}

// Driver implements object.Driver for a serial console. It is not a
// reactor.Member in the reconnecting sense: FD is stable once opened.
type Driver struct {
	mu sync.Mutex

	Device string
	Opts   Options

	obj *object.Object
	fd  int

	saved unix.Termios
}

// New returns a serial driver bound to obj.
func New(obj *object.Object, device string, opts Options) *Driver {
	return &Driver{Device: device, Opts: opts, obj: obj, fd: -1}
}

func (d *Driver) Name() string { return "serial" }

// SendBreak issues tcsendbreak via TCSBRK (spec.md §4.12 break support).
func (d *Driver) SendBreak() error {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()
	if fd < 0 {
		return fmt.Errorf("serial: device not open")
	}
	return unix.IoctlSetInt(fd, unix.TCSBRK, 0)
}

func (d *Driver) FD() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd
}

func (d *Driver) Interest() reactor.Interest {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return reactor.Interest{}
	}
	return reactor.Interest{Read: true, Write: d.obj.Buf.HasPending()}
}

// Open applies the algorithm in spec.md §4.5.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fd, err := unix.Open(d.Device, unix.O_RDWR|unix.O_NONBLOCK|unix.O_NOCTTY, 0)
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", d.Device, err)
	}

	if !unix.IsTerminal(fd) {
		_ = unix.Close(fd)
		return fmt.Errorf("serial: %s is not a tty", d.Device)
	}

	lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 0}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &lock); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("serial: %s already locked: %w", d.Device, err)
	}

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("serial: get termios: %w", err)
	}
	d.saved = *saved

	raw := *saved
	cfmakeraw(&raw)
	if err := applyOptions(&raw, d.Opts); err != nil {
		_ = unix.Close(fd)
		return err
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("serial: set termios: %w", err)
	}

	d.fd = fd
	d.obj.Buf.ClearEOF()
	return nil
}

// Close flushes pending output then restores the saved termios (spec.md
// §4.5 destroy sequence).
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	_ = unix.IoctlSetInt(d.fd, unix.TCFLSH, unix.TCIOFLUSH)
	_ = unix.IoctlSetTermios(d.fd, unix.TCSETS, &d.saved)
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func (d *Driver) OnReadable() bool {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()

	var buf [4096]byte
	n, err := unix.Read(fd, buf[:])
	if n <= 0 || (err != nil && err != unix.EAGAIN) {
		return false
	}
	d.obj.Buf.Write(buf[:n], false)
	return true
}

func (d *Driver) OnWritable() bool {
	d.mu.Lock()
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
	return err == nil || err == unix.EAGAIN
}

// cfmakeraw mirrors POSIX cfmakeraw(3): disable input translation,
// output post-processing, canonical/echo/signal handling, and set
// 8-bit cooked-free reads (spec.md §4.5 "raw mode").
func cfmakeraw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

func applyOptions(t *unix.Termios, o Options) error {
	speed, ok := bpsTable[o.BPS]
	if !ok {
		return fmt.Errorf("serial: unsupported bps %d", o.BPS)
	}
	t.Ispeed = speed
	t.Ospeed = speed

	t.Cflag &^= unix.CSIZE
	switch o.DataBits {
	case 5:
		t.Cflag |= unix.CS5
	case 6:
		t.Cflag |= unix.CS6
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	default:
		return fmt.Errorf("serial: unsupported data bits %d", o.DataBits)
	}

	switch o.Parity {
	case ParityNone:
		t.Cflag &^= unix.PARENB
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
		t.Cflag &^= unix.PARODD
	default:
		return fmt.Errorf("serial: unsupported parity %q", o.Parity)
	}

	switch o.StopBits {
	case 1:
		t.Cflag &^= unix.CSTOPB
	case 2:
		t.Cflag |= unix.CSTOPB
	default:
		return fmt.Errorf("serial: unsupported stop bits %d", o.StopBits)
	}

	t.Cflag |= unix.CREAD | unix.CLOCAL
	return nil
}

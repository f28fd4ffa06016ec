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

// Package unixsock implements the AF_UNIX console driver (C7, spec.md
// §4.7): a two-state (DOWN, UP) reconnecting client of a local socket
// path, optionally rearmed by an fsnotify watch when the path does not
// yet exist.
package unixsock

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/driver"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/timer"
)

// maxSunPath mirrors the platform's sockaddr_un.sun_path length bound
// (spec.md §4.7 "path length bounded by the platform's sun_path
// maximum").
const maxSunPath = 108

// Driver implements object.Driver and reactor.Member for a unix-socket
// console.
type Driver struct {
	mu sync.Mutex

	Path string

	obj   *object.Object
	rc    *driver.Reconnect
	state driver.State
	fd    int

	schedule func(func())
	watcher  *fsnotify.Watcher
}

// New returns a unix-socket driver bound to obj. schedule, normally the
// owning reactor's RequestReset, lets an fsnotify watch on the socket's
// parent directory rearm Connect as soon as the path is created instead
// of waiting out the backoff; pass nil to disable the watch (e.g. in
// tests) and fall back to backoff-only reconnect.
func New(obj *object.Object, wheel *timer.Wheel, path string, schedule func(func())) *Driver {
	d := &Driver{
		Path: path, obj: obj, fd: -1, state: driver.Down,
		rc:       driver.NewReconnect(wheel, backoff.Policy{Min: 4 * time.Second, Max: 1800 * time.Second}),
		schedule: schedule,
	}
	d.armWatch()
	return d
}

// armWatch starts an fsnotify watch on the socket's parent directory so
// a Create event for the socket path triggers an immediate reconnect
// attempt rather than waiting for the next backoff tick (spec.md §4.7:
// the driver "rearms when the peer becomes available again"). Failures
// to create the watch (missing directory, inotify limits) are silent:
// the backoff retry loop in scheduleReconnectLocked still covers
// reconnection on its own.
func (d *Driver) armWatch() {
	if d.schedule == nil {
		return
	}
	dir := filepath.Dir(d.Path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return
	}
	d.watcher = w
	target := filepath.Join(dir, filepath.Base(d.Path))
	go d.watchLoop(w, target)
}

func (d *Driver) watchLoop(w *fsnotify.Watcher, target string) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Name != target || !ev.Op.Has(fsnotify.Create) {
				continue
			}
			if d.State() != driver.Down {
				continue
			}
			d.schedule(func() { _ = d.Connect() })
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

func (d *Driver) Name() string     { return "unixsock" }
func (d *Driver) SendBreak() error { return nil }

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

// Connect attempts the DOWN->UP transition (spec.md §4.7).
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.Path) >= maxSunPath {
		err := fmt.Errorf("unixsock: path exceeds sun_path limit: %s", d.Path)
		d.scheduleReconnectLocked()
		return err
	}

	var st unix.Stat_t
	if err := unix.Stat(d.Path, &st); err != nil {
		d.scheduleReconnectLocked()
		return err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		err := fmt.Errorf("unixsock: %s is not a socket", d.Path)
		d.scheduleReconnectLocked()
		return err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		d.scheduleReconnectLocked()
		return err
	}
	addr := &unix.SockaddrUnix{Name: d.Path}
	if err := unix.Connect(fd, addr); err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		d.scheduleReconnectLocked()
		return err
	}

	d.fd = fd
	d.state = driver.Up
	d.obj.Buf.ClearEOF()
	d.rc.ArmDebounce()
	return nil
}

func (d *Driver) scheduleReconnectLocked() {
	d.state = driver.Down
	d.rc.ScheduleRetry(func() { _ = d.Connect() })
}

func (d *Driver) OnReadable() bool {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()

	var buf [4096]byte
	n, err := unix.Read(fd, buf[:])
	if n <= 0 || (err != nil && err != unix.EAGAIN) {
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
	d.scheduleReconnectLocked()
}

// State reports the current lifecycle state.
func (d *Driver) State() driver.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

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

// Package process implements the local-program console driver (C8,
// spec.md §4.8): resolve the command on a PATH-like list, fork over a
// socketpair, and rearm on exit with the same backoff/debounce policy
// as the telnet driver.
package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/driver"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/timer"
)

// Driver implements object.Driver and reactor.Member for a process
// console.
type Driver struct {
	mu sync.Mutex

	Command string
	Path     []string // PATH-like search list from configuration

	obj     *object.Object
	rc      *driver.Reconnect
	state   driver.State
	fd      int
	pid     int
	started time.Time
}

// New returns a process driver bound to obj.
func New(obj *object.Object, wheel *timer.Wheel, command string, searchPath []string) *Driver {
	return &Driver{
		Command: command, Path: searchPath, obj: obj, fd: -1, state: driver.Down,
		rc: driver.NewReconnect(wheel, backoff.Policy{Min: 4 * time.Second, Max: 1800 * time.Second}),
	}
}

func (d *Driver) Name() string     { return "process" }
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

// Resolve searches d.Path for an executable regular file named by
// d.Command, returning the absolute path (spec.md §4.8 "resolve the
// command by search").
func (d *Driver) Resolve() (string, error) {
	if strings.Contains(d.Command, "/") {
		return d.verify(d.Command)
	}
	for _, dir := range d.Path {
		cand := filepath.Join(dir, d.Command)
		if p, err := d.verify(cand); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("process: %q not found on search path", d.Command)
}

func (d *Driver) verify(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("process: %s is not a regular file", path)
	}
	if fi.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("process: %s is not executable", path)
	}
	return path, nil
}

// Connect resolves and forks the configured command over a socketpair
// (spec.md §4.8).
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path, err := d.Resolve()
	if err != nil {
		d.scheduleReconnectLocked()
		return err
	}

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		d.scheduleReconnectLocked()
		return err
	}
	parentFD, childFD := fds[0], fds[1]
	_ = unix.SetNonblock(parentFD, true)
	unix.CloseOnExec(parentFD)

	childFile := os.NewFile(uintptr(childFD), "console-child")
	defer childFile.Close()

	cmd := exec.Command(path)
	cmd.Stdin = childFile
	cmd.Stdout = childFile
	cmd.Stderr = childFile
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = unix.Close(parentFD)
		_ = unix.Close(childFD)
		d.scheduleReconnectLocked()
		return err
	}

	d.fd = parentFD
	d.pid = cmd.Process.Pid
	d.started = time.Now()
	d.state = driver.Up
	d.obj.Buf.ClearEOF()
	d.rc.ArmDebounce()

	go func() { _ = cmd.Wait() }() // reap; exit detected via read EOF on parentFD

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

// teardown SIGKILLs the child best-effort and rearms the reconnect
// timer (spec.md §4.8 "on child exit or read error the driver SIGKILLs
// the pid").
func (d *Driver) teardown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd >= 0 {
		_ = unix.Close(d.fd)
	}
	if d.pid > 0 {
		_ = unix.Kill(d.pid, unix.SIGKILL)
	}
	d.fd = -1
	d.pid = 0
	d.scheduleReconnectLocked()
}

// State reports the current lifecycle state.
func (d *Driver) State() driver.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// StartedAt reports when the current incarnation was forked (the
// "startup epoch" of spec.md §4.8), zero if not running.
func (d *Driver) StartedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

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

// Package resetcmd implements the reset-command dispatcher (C14,
// spec.md §4.14): substitute the console name into the configured
// template, fork `/bin/sh -c <cmd>` into its own process group, and
// SIGKILL the whole group if it outlives RESET_CMD_TIMEOUT.
package resetcmd

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/timer"
)

// MaxSubstitutedLength bounds the command after `&`-substitution;
// templates that would grow past it abort the reset (spec.md §4.14
// "bounded length, truncation aborts the reset with NOTICE log").
const MaxSubstitutedLength = 4096

// DefaultTimeout is used when a dispatch's timeout is zero.
const DefaultTimeout = 10 * time.Second

// Notifier receives the NOTICE-level log line this package cannot emit
// itself without pulling in the daemon's concrete logrus/logger wiring
// (internal/logger); internal/daemon binds this to its logrus entry at
// NOTICE-equivalent (Info) level.
type Notifier func(format string, args ...any)

// Dispatcher runs reset commands and kills them on timeout using the
// shared timer wheel rather than a per-command goroutine+time.Timer,
// keeping every scheduled action observable through the one wheel the
// rest of the daemon already uses.
type Dispatcher struct {
	Template  string // e.g. "/usr/local/sbin/reset.sh &"
	SubstChar byte   // default '&'
	Timeout   time.Duration
	Notify    Notifier

	wheel *timer.Wheel

	mu      sync.Mutex
	running map[int]*exec.Cmd
}

// New returns a dispatcher bound to wheel for timeout scheduling.
func New(wheel *timer.Wheel, template string, substChar byte, timeout time.Duration, notify Notifier) *Dispatcher {
	if substChar == 0 {
		substChar = '&'
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if notify == nil {
		notify = func(string, ...any) {}
	}
	return &Dispatcher{
		Template: template, SubstChar: substChar, Timeout: timeout, Notify: notify,
		wheel: wheel, running: make(map[int]*exec.Cmd),
	}
}

// substitute replaces every SubstChar byte in the template with console,
// returning an error if the result would exceed MaxSubstitutedLength.
func (d *Dispatcher) substitute(console string) (string, error) {
	out := strings.ReplaceAll(d.Template, string(d.SubstChar), console)
	if len(out) > MaxSubstitutedLength {
		return "", fmt.Errorf("resetcmd: substituted command exceeds %d bytes", MaxSubstitutedLength)
	}
	return out, nil
}

// Dispatch substitutes console into the template and runs the result
// via `/bin/sh -c`, arming a kill-on-timeout timer (spec.md §4.14).
func (d *Dispatcher) Dispatch(console string) error {
	cmdline, err := d.substitute(console)
	if err != nil {
		d.Notify("NOTICE: reset command for console [%s] truncated, aborting: %v", console, err)
		return err
	}

	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	// Child calls setpgid(0,0) as part of forkAndExecInChild before the
	// exec, giving us a process group we can kill as a unit; Go's
	// exec.Cmd applies this synchronously in the child during Start,
	// matching the parent-also-calls-setpgid race-freedom the original
	// C daemon needs two explicit calls for.
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		d.Notify("NOTICE: reset command for console [%s] failed to start: %v", console, err)
		return err
	}

	pid := cmd.Process.Pid
	d.mu.Lock()
	d.running[pid] = cmd
	d.mu.Unlock()

	d.wheel.AddAfter(d.Timeout, func(any) { d.killIfAlive(pid) }, nil)

	go func() {
		_ = cmd.Wait()
		d.mu.Lock()
		delete(d.running, pid)
		d.mu.Unlock()
	}()

	return nil
}

// killIfAlive SIGKILLs the process group of pid if it is still tracked
// (i.e. has not already exited and been reaped).
func (d *Dispatcher) killIfAlive(pid int) {
	d.mu.Lock()
	_, alive := d.running[pid]
	d.mu.Unlock()
	if !alive {
		return
	}
	pgid, err := syscall.Getpgid(pid)
	if err == nil && pgid > 0 {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
	d.Notify("NOTICE: reset command pid %d timed out, process group killed", pid)
}

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

// Package logfile implements the per-console log sink (C11, spec.md
// §4.11): name resolution against a log directory with a console-name
// substitution escape, append-only opening with an advisory write
// lock, a timestamp-banner timer aligned from midnight, and the
// sanitiser used when a logfile's enableSanitize option is set.
package logfile

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/timer"
)

// Options configures a logfile sink.
type Options struct {
	Dir            string // base log directory; ignored if Name is absolute
	Name           string // may contain SubstChar, replaced with the console name
	SubstChar      byte   // default '&'
	Truncate       bool   // truncate at daemon start rather than append
	EnableSanitize bool
	StampMinutes   int // 0 disables the periodic timestamp banner
}

// Sink is the logfile object's Driver-adjacent state: it is not an
// object.Driver (it has no SendBreak/Name console semantics) but owns
// the open file and sanitiser backing a KindLogfile object.
type Sink struct {
	mu sync.Mutex

	path string
	opts Options

	f   *fdFile
	san Sanitizer

	obj   *object.Object
	wheel *timer.Wheel
	stamp timer.ID
}

// ResolvePath expands the substitution escape character in name with
// consoleName and joins it to dir unless name is already absolute
// (spec.md §4.11).
func ResolvePath(dir, name string, subst byte, consoleName string) string {
	if subst == 0 {
		subst = '&'
	}
	expanded := strings.ReplaceAll(name, string(subst), consoleName)
	if filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(dir, expanded)
}

// New binds a Sink to obj (a KindLogfile object) and wheel for the
// periodic timestamp banner.
func New(obj *object.Object, wheel *timer.Wheel, opts Options) *Sink {
	return &Sink{obj: obj, wheel: wheel, opts: opts}
}

// Open resolves the path, opens it O_WRONLY|O_CREAT|O_APPEND|O_NONBLOCK
// (optionally truncating), takes an advisory write lock, sets close-on-
// exec, appends the "opened" banner, and arms the timestamp timer
// (spec.md §4.11).
func (s *Sink) Open(consoleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := ResolvePath(s.opts.Dir, s.opts.Name, s.opts.SubstChar, consoleName)
	flags := unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND | unix.O_NONBLOCK
	if s.opts.Truncate {
		flags |= unix.O_TRUNC
	}

	fd, err := unix.Open(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("logfile: open %s: %w", path, err)
	}

	lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 0}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &lock); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("logfile: %s already locked: %w", path, err)
	}
	unix.CloseOnExec(fd)

	s.path = path
	s.f = &fdFile{fd: fd}

	banner := fmt.Sprintf("Console [%s] log opened at %s\n", consoleName, time.Now().Format(time.ANSIC))
	_, _ = s.f.Write([]byte(banner))

	s.armStampLocked()
	return nil
}

// Write passes p through the sanitiser (if enabled) and writes it to
// the open file (spec.md §4.11 "writes go through the normal object-
// buffer pipeline").
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, fmt.Errorf("logfile: not open")
	}
	out := p
	if s.opts.EnableSanitize {
		out = s.san.Sanitize(nil, p)
	}
	return s.f.Write(out)
}

// armStampLocked schedules the next timestamp banner aligned from
// midnight on first arm (spec.md §4.11 "aligned from midnight on first
// arm").
func (s *Sink) armStampLocked() {
	if s.opts.StampMinutes <= 0 || s.wheel == nil {
		return
	}
	interval := time.Duration(s.opts.StampMinutes) * time.Minute
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight)
	next := interval - (elapsed % interval)

	s.stamp = s.wheel.AddAfter(next, func(any) { s.writeStampAndRearm() }, nil)
}

func (s *Sink) writeStampAndRearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		banner := fmt.Sprintf("Console log at %s\n", time.Now().Format(time.ANSIC))
		_, _ = s.f.Write([]byte(banner))
	}
	s.armStampLocked()
}

// Reopen closes and reopens the logfile in place (spec.md §4.11 "on
// SIGHUP all logfiles... are closed and reopened"), preserving the
// console name used for the substitution escape and the banner.
func (s *Sink) Reopen(consoleName string) error {
	s.Close()
	return s.Open(consoleName)
}

// Close cancels the stamp timer and closes the file if open.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wheel != nil {
		s.wheel.Cancel(s.stamp)
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
}

// Path reports the resolved, currently-open log path ("" if closed).
func (s *Sink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// fdFile wraps a raw fd from unix.Open in the io.Writer/io.Closer shape
// the rest of the package expects, since os.NewFile would re-wrap a fd
// already configured with O_NONBLOCK in ways that fight our own flags.
type fdFile struct {
	fd int
}

func (f *fdFile) Write(p []byte) (int, error) { return unix.Write(f.fd, p) }
func (f *fdFile) Close() error                { return unix.Close(f.fd) }

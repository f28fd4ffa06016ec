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

// Package pidfile manages the daemon's single-instance advisory lock on
// its configuration file (spec.md §5 "Advisory fcntl write-locks
// protect... the configuration file") and the pidfile written after
// daemonisation, and resolves the target pid for -k/-r the way spec.md
// §4.16 and §6 describe: from the pidfile, falling back to the
// configuration file's lock owner when no pidfile is configured.
package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Lock takes an advisory exclusive write-lock on path (the configuration
// file), the same F_SETLK idiom internal/logfile and internal/driver/serial
// use for their own single-writer locks. The returned fd must be kept
// open for the lifetime of the process; closing it releases the lock.
func Lock(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_WRONLY, 0)
	if err != nil {
		return -1, fmt.Errorf("pidfile: open %s: %w", path, err)
	}
	lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 0}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &lock); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("pidfile: %s already locked by another conmand: %w", path, err)
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

// LockOwnerPID uses F_GETLK to find the pid holding path's write lock,
// the fallback spec.md's supplemented -k/-r behavior uses when no
// pidfile is configured.
func LockOwnerPID(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("pidfile: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 0}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_GETLK, &lock); err != nil {
		return 0, fmt.Errorf("pidfile: query lock on %s: %w", path, err)
	}
	if lock.Type == unix.F_UNLCK {
		return 0, fmt.Errorf("pidfile: %s is not locked by any running conmand", path)
	}
	return int(lock.Pid), nil
}

// Write records pid (followed by LF, spec.md §6 "Persisted state")
// at path, replacing any previous contents.
func Write(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read parses the pid out of path.
func Read(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("pidfile: read %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("pidfile: %s does not contain a pid: %w", path, err)
	}
	return pid, nil
}

// ResolveTargetPID returns the pid -k/-r should signal: the pidfile's
// contents when pidFile names a file that exists, otherwise the lock
// owner of lockFile (the configuration file).
func ResolveTargetPID(pidFile, lockFile string) (int, error) {
	if pidFile != "" {
		if pid, err := Read(pidFile); err == nil {
			return pid, nil
		}
	}
	return LockOwnerPID(lockFile)
}

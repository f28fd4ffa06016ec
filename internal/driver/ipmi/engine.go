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

package ipmi

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// ipmiconsoleEngine is the default Engine: it shells out to FreeIPMI's
// ipmiconsole(1) per console, one subprocess standing in for one of
// libipmiconsole's internal worker threads, and hands back the PTY
// master fd as the pollable end of the connection.
type ipmiconsoleEngine struct {
	mu    sync.Mutex
	procs map[int]*exec.Cmd // keyed by PTY master fd, for Close/Break
	path  string            // ipmiconsole binary path, defaults to PATH lookup
}

// NewIPMIConsoleEngine returns an Engine backed by the ipmiconsole(1)
// command-line tool. path may be empty to resolve "ipmiconsole" from
// PATH at Submit time.
func NewIPMIConsoleEngine(path string) Engine {
	return &ipmiconsoleEngine{procs: make(map[int]*exec.Cmd), path: path}
}

func (e *ipmiconsoleEngine) Submit(ctx context.Context, host string, creds Credentials, cb func(Result)) {
	go func() {
		bin := e.path
		if bin == "" {
			bin = "ipmiconsole"
		}
		args := []string{"-h", host, "-u", creds.Username, "-p", creds.Password}
		if creds.CipherSuite >= 0 {
			args = append(args, "-I", strconv.Itoa(creds.CipherSuite))
		}
		if lvl := privilegeArg(creds.Privilege); lvl != "" {
			args = append(args, "-l", lvl)
		}
		if len(creds.Kg) > 0 {
			args = append(args, "-k", string(creds.Kg))
		}

		cmd := exec.CommandContext(ctx, bin, args...)
		master, err := pty.Start(cmd)
		if err != nil {
			cb(Result{Err: fmt.Errorf("ipmi: start ipmiconsole: %w", err)})
			return
		}

		fd := int(master.Fd())
		_ = unix.SetNonblock(fd, true)

		e.mu.Lock()
		e.procs[fd] = cmd
		e.mu.Unlock()

		cb(Result{FD: fd})
	}()
}

func (e *ipmiconsoleEngine) Break(fd int) error {
	e.mu.Lock()
	cmd := e.procs[fd]
	e.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("ipmi: no active session for fd %d", fd)
	}
	// ipmiconsole treats a literal '\x00' escape sequence on its pty
	// as a request to assert a serial break to the remote BMC.
	_, err := unix.Write(fd, []byte{0x00})
	return err
}

func (e *ipmiconsoleEngine) Close(fd int) {
	e.mu.Lock()
	cmd := e.procs[fd]
	delete(e.procs, fd)
	e.mu.Unlock()

	_ = unix.Close(fd)
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func privilegeArg(p Privilege) string {
	switch p {
	case PrivilegeUser:
		return "USER"
	case PrivilegeOperator:
		return "OPERATOR"
	case PrivilegeAdmin:
		return "ADMIN"
	default:
		return ""
	}
}

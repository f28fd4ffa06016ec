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

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// daemonStageEnv carries which leg of the double-fork the process is
// running as across a re-exec. A raw fork() is unsafe once the Go
// runtime has started scheduler threads, so each "fork" below is a
// re-exec of the running binary instead of a literal fork(2) call; the
// net effect on the process tree and controlling-tty detachment is the
// same one begin_daemonize()/end_daemonize() produce.
const daemonStageEnv = "_CONMAND_DAEMON_STAGE"

// daemonize re-execs the current process through both legs of the
// daemonization below and blocks until the final leg reports success or
// failure over a pipe, so the invoking shell sees any startup error
// before control returns to it (spec.md §4.16). It never returns: it
// calls os.Exit with 0 on success or 1 on failure.
func daemonize() {
	r, w, err := os.Pipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "conmand: pipe: %v\n", err)
		os.Exit(1)
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonStageEnv+"=1")
	cmd.ExtraFiles = []*os.File{w}
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "conmand: daemonize: %v\n", err)
		os.Exit(1)
	}
	w.Close()

	msg, _ := io.ReadAll(r)
	r.Close()
	if len(msg) > 0 {
		fmt.Fprint(os.Stderr, string(msg))
		os.Exit(1)
	}
	os.Exit(0)
}

// daemonizeStage1 is the first fork's child: it becomes a session
// leader with no controlling tty and ignores SIGHUP so the parent's
// imminent exit doesn't signal it, then re-execs once more to abdicate
// session-leader status (so the daemon can never reacquire a
// controlling tty) before exiting itself.
func daemonizeStage1() {
	pipeFile := os.NewFile(3, "conmand-sync-pipe")

	syscall.Umask(0)
	_ = unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})

	if _, err := syscall.Setsid(); err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: setsid: %v\n", err))
	}
	signal.Ignore(syscall.SIGHUP)

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonStageEnv+"=2")
	cmd.ExtraFiles = []*os.File{pipeFile}
	if err := cmd.Start(); err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: daemonize: %v\n", err))
	}
	os.Exit(0)
}

// daemonSyncPipe returns the grandchild's end of the sync pipe opened by
// daemonize, set up by the ExtraFiles plumbing through both re-execs.
func daemonSyncPipe() *os.File {
	return os.NewFile(3, "conmand-sync-pipe")
}

// finishDaemonize detaches stdin/stdout/stderr from the controlling
// terminal and signals the original invocation (blocked in daemonize)
// that startup succeeded by closing the sync pipe.
func finishDaemonize(pipeFile *os.File) {
	if err := os.Chdir("/"); err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: chdir /: %v\n", err))
	}
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: open %s: %v\n", os.DevNull, err))
	}
	for _, f := range []*os.File{os.Stdin, os.Stdout, os.Stderr} {
		if err := unix.Dup2(int(devNull.Fd()), int(f.Fd())); err != nil {
			failDaemonize(pipeFile, fmt.Sprintf("conmand: dup2 %s: %v\n", os.DevNull, err))
		}
	}
	devNull.Close()
	pipeFile.Close()
}

// failDaemonize writes msg to the sync pipe (so the blocked parent
// prints it to the original shell) and exits 1. Used before
// finishDaemonize has redirected stderr to /dev/null.
func failDaemonize(pipeFile *os.File, msg string) {
	if pipeFile != nil {
		_, _ = pipeFile.WriteString(msg)
		pipeFile.Close()
	}
	os.Exit(1)
}

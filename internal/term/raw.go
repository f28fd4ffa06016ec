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

package term

import (
	"golang.org/x/crypto/ssh/terminal"
)

// Raw puts fd (stdin, typically) into cbreak mode for the life of a
// MONITOR/CONNECT session so every keystroke -- including the escape
// byte sequences internal/session's Escape processor interprets --
// reaches the socket unmangled by local line editing and echo. The
// returned restore func must be called before the session ends.
func Raw(fd int) (restore func() error, err error) {
	state, err := terminal.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return terminal.Restore(fd, state) }, nil
}

// IsTerminal reports whether fd refers to a terminal, used to decide
// whether Raw is worth attempting and whether color output should be
// disabled.
func IsTerminal(fd int) bool {
	return terminal.IsTerminal(fd)
}

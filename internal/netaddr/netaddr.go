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

// Package netaddr parses the host:port forms used by telnet console
// DEV directives, the client -d flag, and the daemon listen address.
package netaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// HostPort is a resolved host/port pair.
type HostPort struct {
	Host string
	Port int
}

// SplitHostPort parses "host:port"; when the port is missing, a positive
// defaultPort is used in its place, otherwise it is an error. IPv6 literals
// must be bracketed ("[::1]:623") exactly as net.SplitHostPort expects.
func SplitHostPort(s string, defaultPort int) (HostPort, error) {
	if s == "" {
		return HostPort{}, fmt.Errorf("netaddr: empty address")
	}
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		if defaultPort > 0 {
			return HostPort{Host: trimBrackets(s), Port: defaultPort}, nil
		}
		return HostPort{}, fmt.Errorf("netaddr: %q is not host:port", s)
	}
	host := trimBrackets(s[:i])
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return HostPort{}, fmt.Errorf("netaddr: %q: invalid port: %w", s, err)
	}
	return HostPort{Host: host, Port: port}, nil
}

func trimBrackets(host string) string {
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

// String renders hp back into "host:port" form.
func (hp HostPort) String() string {
	return fmt.Sprintf("%s:%d", hp.Host, hp.Port)
}

// LoopbackOnly reports whether addr names only the local loopback
// interface, the way the daemon's LOOPBACKONLY setting restricts its
// listen address (spec.md §6).
func LoopbackOnly(addr string) bool {
	switch addr {
	case "127.0.0.1", "localhost", "::1":
		return true
	default:
		return false
	}
}

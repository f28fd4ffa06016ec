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

// Package listener implements the client-facing TCP accept loop (C15,
// spec.md §4.15) as a reactor.Member: one listen socket, one bound
// accept-until-EAGAIN callback per ready event.
package listener

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/hostcache"
	"github.com/dun/conman-sub000/internal/reactor"
)

// DefaultBacklog matches spec.md §4.15 "listen backlog ~10".
const DefaultBacklog = 10

// Options configures the bound listen socket.
type Options struct {
	Addr      string // "" or "0.0.0.0" for any-address, "127.0.0.1" for loopback-only
	Port      int
	Keepalive bool
	Backlog   int
}

// Accepted is the information handed to OnAccept for each new
// connection: the non-blocking CLOEXEC client fd and its best-effort
// resolved peer hostname.
type Accepted struct {
	FD       int
	PeerAddr string
	PeerHost string
}

// Listener owns the listen socket and drives accept() from the
// reactor's single thread; OnAccept is invoked once per accepted
// connection (normally to build a client object and link a session to
// it, spec.md §4.12/§4.15).
type Listener struct {
	fd       int
	opts     Options
	cache    *hostcache.Cache
	OnAccept func(Accepted)
}

// New binds and listens per opts, returning a Listener ready to be
// registered with the reactor. cache is used for reverse-DNS lookups
// of accepted peers (best-effort, spec.md §4.15).
func New(opts Options, cache *hostcache.Cache, onAccept func(Accepted)) (*Listener, error) {
	if opts.Backlog <= 0 {
		opts.Backlog = DefaultBacklog
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("listener: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listener: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listener: set nonblocking: %w", err)
	}
	unix.CloseOnExec(fd)

	sa, err := sockaddr(opts.Addr, opts.Port)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listener: bind: %w", err)
	}
	if err := unix.Listen(fd, opts.Backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listener: listen: %w", err)
	}

	return &Listener{fd: fd, opts: opts, cache: cache, OnAccept: onAccept}, nil
}

func sockaddr(addr string, port int) (unix.Sockaddr, error) {
	var ip [4]byte
	if addr != "" && addr != "0.0.0.0" {
		parsed := net.ParseIP(addr)
		if parsed == nil || parsed.To4() == nil {
			return nil, fmt.Errorf("listener: invalid IPv4 address %q", addr)
		}
		copy(ip[:], parsed.To4())
	}
	return &unix.SockaddrInet4{Port: port, Addr: ip}, nil
}

func (l *Listener) FD() int { return l.fd }

func (l *Listener) Interest() reactor.Interest {
	return reactor.Interest{Read: true}
}

// OnReadable accepts every pending connection until EAGAIN/EWOULDBLOCK
// (spec.md §4.15 "accept in a loop until EAGAIN"), applying KEEPALIVE
// and resolving the peer hostname (best-effort, cached) before handing
// each to OnAccept.
func (l *Listener) OnReadable() bool {
	for {
		nfd, sa, err := unix.Accept(l.fd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return true
			}
			return true
		}
		unix.CloseOnExec(nfd)
		_ = unix.SetNonblock(nfd, true)
		if l.opts.Keepalive {
			_ = unix.SetsockoptInt(nfd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
		}

		peerAddr := formatSockaddr(sa)
		peerHost := peerAddr
		if l.cache != nil {
			peerHost = l.cache.Resolve(peerAddr, reverseResolve)
		} else {
			peerHost = reverseResolve(peerAddr)
		}

		if l.OnAccept != nil {
			l.OnAccept(Accepted{FD: nfd, PeerAddr: peerAddr, PeerHost: peerHost})
		}
	}
}

// OnWritable is unused; the listen socket is never write-interested.
func (l *Listener) OnWritable() bool { return true }

// Close shuts down the listen socket.
func (l *Listener) Close() error { return unix.Close(l.fd) }

func formatSockaddr(sa unix.Sockaddr) string {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(s.Addr[:])
		return fmt.Sprintf("%s:%d", ip.String(), s.Port)
	default:
		return ""
	}
}

// reverseResolve performs a best-effort reverse-DNS lookup, falling
// back to the bare address on failure (spec.md §4.15).
func reverseResolve(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	names, err := net.LookupAddr(host)
	if err != nil || len(names) == 0 {
		return host
	}
	return names[0]
}

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

package daemon

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/dun/conman-sub000/internal/logger"
	"github.com/dun/conman-sub000/internal/metrics"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/session"
)

// sessionIDAttr is the object.Attrs key holding a client's session ID
// (a uuid, generated once per accepted connection), used to correlate
// a single client's log lines across connect/departed/teardown without
// relying on the peer address, which a NAT or proxy can make ambiguous.
const sessionIDAttr = "session_id"

// clientBufCap is the per-client circular buffer size (spec.md §3).
const clientBufCap = 8192

// replayBytes is the ESC L replay window R, kept at B/2 per spec.md §3
// ("R is set so R <= B/2").
const replayBytes = consoleBufCap / 2

// maxPendingLine bounds the GREET/REQ line accumulator so a client that
// never sends a newline cannot grow memory unbounded (spec.md §6
// MaxLine governs the wire grammar itself; this is the socket-side
// counterpart).
const maxPendingLine = 4096

// clientMember is the reactor.Member for one accepted client
// connection: it owns the raw socket fd, line-buffers the GREET/REQ
// phase, and once in DATA phase runs typed bytes through the escape
// processor and forwards the result directly to the session's target
// console(s).
type clientMember struct {
	fd   int
	peer string

	sess *session.Session
	obj  *object.Object // graph node; Buf holds bytes pending write to the client socket

	pending         []byte
	suspended       bool
	closeAfterFlush bool // set once a QUERY response is queued: close once it drains

	d *Daemon
}

func newClientMember(d *Daemon, fd int, peer string) *clientMember {
	obj := object.NewObject(fmt.Sprintf("client(%s)", peer), object.KindClient, clientBufCap)
	obj.Attrs.Store(sessionIDAttr, uuid.NewString())
	return &clientMember{
		fd:   fd,
		peer: peer,
		obj:  obj,
		sess: session.New(obj, d.master, d.cfg.EscapeChar),
		d:    d,
	}
}

// sessionID returns the client's session ID, generated once in
// newClientMember, for use in log correlation.
func (m *clientMember) sessionID() string {
	v, _ := m.obj.Attrs.Load(sessionIDAttr)
	id, _ := v.(string)
	return id
}

func (m *clientMember) FD() int { return m.fd }

func (m *clientMember) Interest() reactor.Interest {
	return reactor.Interest{Read: true, Write: m.obj.Buf.HasPending()}
}

func (m *clientMember) OnReadable() bool {
	var buf [4096]byte
	n, err := unix.Read(m.fd, buf[:])
	if n <= 0 || (err != nil && err != unix.EAGAIN) {
		m.teardown()
		return false
	}
	in := buf[:n]

	if m.sess.Phase() == session.PhaseData {
		m.feedData(in)
		if m.sess.Phase() == session.PhaseDone {
			m.teardown()
			return false
		}
		return true
	}

	m.pending = append(m.pending, in...)
	for {
		i := bytes.IndexByte(m.pending, '\n')
		if i < 0 {
			if len(m.pending) > maxPendingLine {
				m.teardown()
				return false
			}
			break
		}
		line := bytes.TrimRight(m.pending[:i], "\r")
		m.pending = m.pending[i+1:]

		resp, err := m.sess.FeedLine(line)
		if err != nil {
			m.teardown()
			return false
		}
		m.obj.Buf.Write([]byte(resp+"\r\n"), false)

		switch m.sess.Phase() {
		case session.PhaseData:
			m.onConnected()
		case session.PhaseDone:
			// QUERY answers and closes without ever entering DATA
			// (spec.md §4.13): let the reactor flush the buffered
			// response before tearing the connection down.
			m.closeAfterFlush = true
			return true
		}
	}
	return true
}

func (m *clientMember) OnWritable() bool {
	chunk := m.obj.Buf.PeekDrain()
	if len(chunk) == 0 {
		if m.closeAfterFlush {
			m.teardown()
			return false
		}
		return true
	}
	n, err := unix.Write(m.fd, chunk)
	if n > 0 {
		m.obj.Buf.Advance(n)
	}
	if err != nil && err != unix.EAGAIN {
		m.teardown()
		return false
	}
	if m.closeAfterFlush && !m.obj.Buf.HasPending() {
		m.teardown()
		return false
	}
	return true
}

// onConnected fires once the REQ exchange lands the session in DATA
// phase: it logs and broadcasts an in-band join notice to any other
// client already attached to the same console(s) (spec.md §7).
func (m *clientMember) onConnected() {
	for _, tgt := range m.sess.Targets() {
		m.announce(tgt, fmt.Sprintf("Console [%s] joined by <%s>", tgt.Name, m.peer))
		metrics.ClientsConnected.WithLabelValues(tgt.Name).Inc()
	}
}

func (m *clientMember) announce(console *object.Object, msg string) {
	info := logger.Informational(msg)
	for _, r := range console.Readers {
		if r == m.obj || r.Kind != object.KindClient {
			continue
		}
		r.Buf.Write(info, true)
	}
	if m.d.log != nil {
		m.d.log.Infof("%s [session=%s]", msg, m.sessionID())
	}
}

// feedData runs in escaped bytes through the session's escape
// processor, forwards the literal bytes directly to the attached
// console(s) input buffers, and executes any triggered commands.
func (m *clientMember) feedData(in []byte) {
	out, cmds := m.sess.FeedData(in)
	if len(out) > 0 && !m.suspended && m.sess.Writable() {
		for _, tgt := range m.sess.Targets() {
			tgt.Buf.Write(out, false)
			metrics.BytesTotal.WithLabelValues(tgt.Name, "write").Add(float64(len(out)))
		}
	}
	for _, c := range cmds {
		m.runCmd(c)
	}
}

func (m *clientMember) runCmd(c session.Cmd) {
	switch c {
	case session.CmdClose:
		m.sess.Close()
	case session.CmdHelp:
		m.obj.Buf.Write([]byte(m.sess.HelpText()), true)
	case session.CmdBreak:
		for _, tgt := range m.sess.Targets() {
			if tgt.Driver != nil {
				_ = tgt.Driver.SendBreak()
			}
		}
	case session.CmdLogReplay:
		if b := session.ReplayForSession(m.sess, replayBytes); b != nil {
			m.obj.Buf.Write(b, true)
		}
	case session.CmdQuiet:
		m.obj.Buf.SetQuiet(!m.obj.Buf.Quiet())
	case session.CmdReset:
		for _, tgt := range m.sess.Targets() {
			if m.d.reset != nil {
				_ = m.d.reset.Dispatch(tgt.Name)
			}
		}
	case session.CmdSuspend:
		m.suspended = !m.suspended
	case session.CmdMonitor:
		for _, tgt := range m.sess.Targets() {
			object.UnlinkPair(m.obj, tgt)
		}
		m.sess.SetReadOnly()
	case session.CmdForce:
		for _, tgt := range m.sess.Targets() {
			object.UnlinkAllWriters(tgt)
			object.Link(m.obj, tgt)
		}
		m.sess.SetWritable()
	case session.CmdJoin:
		for _, tgt := range m.sess.Targets() {
			object.Link(m.obj, tgt)
		}
		m.sess.SetWritable()
	default:
		m.obj.Buf.Write([]byte("\r\n<ConMan> Unrecognized escape sequence.\r\n"), true)
	}
}

func (m *clientMember) teardown() {
	for _, tgt := range m.sess.Targets() {
		m.announce(tgt, fmt.Sprintf("Console [%s] departed by <%s>", tgt.Name, m.peer))
		if m.sess.Phase() == session.PhaseData {
			metrics.ClientsConnected.WithLabelValues(tgt.Name).Dec()
		}
	}
	m.sess.Close()
	_ = unix.Close(m.fd)
	m.d.removeClient(m.obj)
}

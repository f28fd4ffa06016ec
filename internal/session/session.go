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

// Package session implements the client-facing protocol state machine
// (C12): GREET, REQ, RESP, DATA, its escape-byte command processor, the
// console pattern matcher and the log-replay command.
package session

import (
	"fmt"
	"strings"

	"github.com/dun/conman-sub000/internal/errcode"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/wire"
)

// Phase is the client session's protocol stage (spec.md §4.12).
type Phase int

const (
	PhaseGreet Phase = iota
	PhaseReq
	PhaseData
	PhaseDone
)

const helpText = "Supported escape commands: &. &? &B &F &J &M &L &Q &R &Z\n"

// Lister supplies the master object list a request is matched against.
type Lister interface {
	Objects() []*object.Object
}

// Session drives one client connection through GREET -> REQ -> RESP ->
// DATA. It owns no fd directly; Feed/Write callers push bytes in and
// drain Output for bytes to send, matching the way the reactor drives
// every other Member through its buffer rather than blocking I/O.
type Session struct {
	Client *object.Object

	phase   Phase
	master  Lister
	esc     *Escape
	mode    mode
	targets []*object.Object // console(s) this client is linked to, CONNECT only

	User string
	TTY  string

	line []byte // partial line accumulator for GREET/REQ
}

type mode int

const (
	modeNone mode = iota
	modeQuery
	modeMonitor
	modeConnect
)

// New creates a session for client in the GREET phase.
func New(client *object.Object, master Lister, escByte byte) *Session {
	return &Session{
		Client: client,
		phase:  PhaseGreet,
		master: master,
		esc:    NewEscape(escByte),
	}
}

// Phase reports the current protocol stage.
func (s *Session) Phase() Phase { return s.phase }

// FeedLine processes exactly one line received from the client socket
// (without its trailing terminator) while in GREET or REQ phase. It
// returns the wire response line to send back, or ("", nil) in DATA
// phase (callers should route DATA-phase bytes through FeedData
// instead).
func (s *Session) FeedLine(line []byte) (string, error) {
	switch s.phase {
	case PhaseGreet:
		return s.handleGreet(line)
	case PhaseReq:
		return s.handleReq(line)
	default:
		return "", fmt.Errorf("session: FeedLine called outside GREET/REQ phase")
	}
}

func (s *Session) handleGreet(line []byte) (string, error) {
	req, cerr := wire.ParseRequest(line)
	if cerr != nil || req.Verb != wire.VerbHello {
		e := errcode.New(errcode.BadRequest, "expected HELLO")
		return wire.ErrResponse(e).Encode(), nil
	}
	s.User = req.User
	s.TTY = req.TTY
	s.phase = PhaseReq
	return (&wire.Response{OK: true}).Encode(), nil
}

func (s *Session) handleReq(line []byte) (string, error) {
	req, cerr := wire.ParseRequest(line)
	if cerr != nil {
		return wire.ErrResponse(cerr).Encode(), nil
	}

	patterns := req.Consoles
	if len(patterns) == 0 && req.Console != "" {
		patterns = []string{req.Console}
	}
	regexMode := req.Options[wire.OptRegex]
	if len(patterns) == 0 && req.Verb == wire.VerbQuery {
		// A QUERY naming no console lists every console.
		patterns, regexMode = []string{".*"}, true
	}
	matched, cerr := MatchConsoles(s.master.Objects(), patterns, regexMode)
	if cerr != nil {
		return wire.ErrResponse(cerr).Encode(), nil
	}

	broadcast := req.Options[wire.OptBroadcast]
	force := req.Options[wire.OptForce]
	join := req.Options[wire.OptJoin]

	// QUERY never attaches the client to the object graph and never
	// enters DATA phase: spec.md §4.13 has it answer with a bare OK
	// followed by one matched console name per line, then the
	// connection half-closes (S1). Handled separately from
	// MONITOR/CONNECT below so s.targets is never populated with
	// consoles this client was never linked to (teardown's join/depart
	// announcements iterate s.targets and would otherwise misfire for
	// a client that never actually attached).
	if req.Verb == wire.VerbQuery {
		s.mode = modeQuery
		s.phase = PhaseDone
		return encodeQueryResponse(matched), nil
	}

	switch req.Verb {
	case wire.VerbMonitor:
		s.mode = modeMonitor
	case wire.VerbConnect:
		s.mode = modeConnect
		if cerr = ValidateForConnect(matched, broadcast, force, join); cerr != nil {
			return wire.ErrResponse(cerr).Encode(), nil
		}
	default:
		return wire.ErrResponse(errcode.New(errcode.BadRequest, "unexpected verb in REQ phase")).Encode(), nil
	}

	s.targets = matched
	switch req.Verb {
	case wire.VerbConnect:
		s.attach(force, broadcast)
	case wire.VerbMonitor:
		s.attachReadOnly()
	}

	extra := map[string]string{}
	for i, c := range matched {
		key := "CONSOLE"
		if i > 0 {
			key = fmt.Sprintf("CONSOLE%d", i)
		}
		extra[key] = c.Name
	}
	s.phase = PhaseData
	return wire.OKResponse(extra).Encode(), nil
}

// encodeQueryResponse renders the QUERY success reply: a bare OK line
// followed by one matched console name per line (spec.md §4.13 "a list
// of console names terminated by LF per line followed by server
// close"). The caller appends the final line terminator, matching how
// every other response is framed.
func encodeQueryResponse(consoles []*object.Object) string {
	var sb strings.Builder
	sb.WriteString((&wire.Response{OK: true}).Encode())
	for _, c := range consoles {
		sb.WriteString("\r\n")
		sb.WriteString(c.Name)
	}
	return sb.String()
}

// attach links the client to each CONNECT target, evicting existing
// writers first when force is set (spec.md §4.2 "Force (takeover)").
// A broadcast client is write-only (spec.md §3 "a broadcast client has
// multiple consoles in readers, empty writers"): only the client-to-
// console link is made, since a broadcast session never receives
// console output back, only feeds its keystrokes to every target.
func (s *Session) attach(force, broadcast bool) {
	for _, c := range s.targets {
		if force {
			object.UnlinkAllWriters(c)
		}
		if !broadcast {
			object.Link(c, s.Client)
		}
		object.Link(s.Client, c)
	}
}

// attachReadOnly links each MONITOR target's output to the client
// without linking the client back as a writer (spec.md §3 "a read-only
// client has empty readers and exactly one console writer"), so the
// client receives every matched console's output but can never feed
// keystrokes back into any of them.
func (s *Session) attachReadOnly() {
	for _, c := range s.targets {
		object.Link(c, s.Client)
	}
}

// FeedData processes DATA-phase bytes read from the client socket,
// returning the bytes to forward to the attached console(s) and any
// triggered escape commands for the caller (normally the daemon's
// multiplexer glue) to act on.
func (s *Session) FeedData(in []byte) ([]byte, []Cmd) {
	out, cmds := s.esc.Feed(nil, nil, in)
	return out, cmds
}

// HelpText returns the text sent to the client for the `&?` command.
func (s *Session) HelpText() string { return helpText }

// Targets returns the console(s) this (CONNECT) session is attached to.
func (s *Session) Targets() []*object.Object { return s.targets }

// Writable reports whether DATA-phase bytes typed by the client may be
// forwarded to this session's target console(s). Only a CONNECT
// session is writable; MONITOR is read-only server->client per
// spec.md §4.12, and QUERY never reaches DATA phase at all.
func (s *Session) Writable() bool { return s.mode == modeConnect }

// SetWritable marks the session CONNECT-like, used when the ESC F
// (force) or ESC J (join) in-session command relinks the client for
// write access (spec.md §4.12 "switch the session to force/join ...
// flavour by relinking").
func (s *Session) SetWritable() { s.mode = modeConnect }

// SetReadOnly marks the session MONITOR-like, used when the ESC M
// in-session command relinks the client away from write access
// (spec.md §4.12 "switch the session to ... read-only flavour by
// relinking").
func (s *Session) SetReadOnly() { s.mode = modeMonitor }

// Close unlinks the client from every target, used on `&.` or
// disconnect.
func (s *Session) Close() {
	object.Unlink(s.Client)
	s.phase = PhaseDone
}

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

package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dun/conman-sub000/internal/errcode"
)

// Verb is the request kind of a client request line (spec.md §6).
type Verb string

const (
	VerbHello   Verb = "HELLO"
	VerbQuery   Verb = "QUERY"
	VerbMonitor Verb = "MONITOR"
	VerbConnect Verb = "CONNECT"
	VerbGoodbye Verb = "GOODBYE"
)

// Option is one of the connect/monitor modifier flags (spec.md §6
// option-v).
type Option string

const (
	OptBroadcast Option = "BROADCAST"
	OptForce     Option = "FORCE"
	OptJoin      Option = "JOIN"
	OptQuiet     Option = "QUIET"
	OptRegex     Option = "REGEX"
)

// Request is a parsed client request line: `verb kv* NL`. CONSOLE may
// repeat (spec.md §4.12); Console holds the last-seen value for
// backward-compatible single-console callers, Consoles holds every
// occurrence in order.
type Request struct {
	Verb     Verb
	User     string
	TTY      string
	Console  string
	Consoles []string
	Program  string
	Options  map[Option]bool
}

// ParseRequest tokenizes line (without its trailing newline) into a
// Request, per the grammar in spec.md §6. Unknown keys are ignored
// (forward-compatible); a malformed key=value pair or unrecognized verb
// yields BAD_REQUEST.
func ParseRequest(line []byte) (*Request, *errcode.Error) {
	if len(line) > MaxLine {
		return nil, errcode.New(errcode.BadRequest, "line too long")
	}
	lx := New(line)

	tok, err := lx.Next()
	if err != nil || tok.Kind != TokKeyword {
		return nil, errcode.New(errcode.BadRequest, "missing request verb")
	}
	switch Verb(tok.Text) {
	case VerbHello, VerbQuery, VerbMonitor, VerbConnect, VerbGoodbye:
	default:
		return nil, errcode.New(errcode.BadRequest, "unrecognized request verb: "+tok.Text)
	}

	req := &Request{Verb: Verb(tok.Text), Options: make(map[Option]bool)}

	for {
		tok, err = lx.Next()
		if err != nil {
			return nil, errcode.New(errcode.BadRequest, err.Error())
		}
		if tok.Kind == TokEOF {
			break
		}
		if tok.Kind == TokKeyword && isOption(tok.Text) {
			req.Options[Option(tok.Text)] = true
			continue
		}
		key := tok.Text
		eq, err := lx.Next()
		if err != nil || eq.Kind != TokPunct || eq.Text != "=" {
			return nil, errcode.New(errcode.BadRequest, "expected '=' after key "+key)
		}
		val, err := lx.Next()
		if err != nil {
			return nil, errcode.New(errcode.BadRequest, err.Error())
		}
		switch strings.ToUpper(key) {
		case "USER":
			req.User = valueText(val)
		case "TTY":
			req.TTY = valueText(val)
		case "CONSOLE":
			req.Console = valueText(val)
			req.Consoles = append(req.Consoles, req.Console)
		case "PROGRAM":
			req.Program = valueText(val)
		}
	}
	return req, nil
}

func isOption(s string) bool {
	switch Option(s) {
	case OptBroadcast, OptForce, OptJoin, OptQuiet, OptRegex:
		return true
	default:
		return false
	}
}

func valueText(t Token) string {
	switch t.Kind {
	case TokString, TokIdent, TokKeyword:
		return t.Text
	case TokInt:
		return t.Text
	default:
		return ""
	}
}

// Encode renders the request back to its wire-line form (used by the
// client CLI, cmd/conman).
func (r *Request) Encode() string {
	var sb strings.Builder
	sb.WriteString(string(r.Verb))
	if r.User != "" {
		fmt.Fprintf(&sb, " USER=%s", Quote(r.User))
	}
	if r.TTY != "" {
		fmt.Fprintf(&sb, " TTY=%s", Quote(r.TTY))
	}
	if len(r.Consoles) > 0 {
		for _, c := range r.Consoles {
			fmt.Fprintf(&sb, " CONSOLE=%s", Quote(c))
		}
	} else if r.Console != "" {
		fmt.Fprintf(&sb, " CONSOLE=%s", Quote(r.Console))
	}
	if r.Program != "" {
		fmt.Fprintf(&sb, " PROGRAM=%s", Quote(r.Program))
	}
	for _, o := range []Option{OptBroadcast, OptForce, OptJoin, OptQuiet, OptRegex} {
		if r.Options[o] {
			sb.WriteString(" " + string(o))
		}
	}
	return sb.String()
}

// Response is a parsed/built server response line: `OK kv* | ERROR CODE
// MESSAGE`.
type Response struct {
	OK      bool
	Code    errcode.CodeError
	Message string
	Extra   map[string]string
}

// OKResponse builds a success response carrying the given key=value
// pairs (e.g. CONSOLE names for a CONNECT or MONITOR reply).
func OKResponse(extra map[string]string) *Response {
	return &Response{OK: true, Extra: extra}
}

// ErrResponse builds an ERROR response from a CodeError.
func ErrResponse(e *errcode.Error) *Response {
	return &Response{OK: false, Code: e.Code, Message: e.Detail}
}

// Encode renders the response to its wire-line form.
func (r *Response) Encode() string {
	if !r.OK {
		return fmt.Sprintf("ERROR CODE=%d MESSAGE=%s", r.Code.Uint16(), Quote(r.Message))
	}
	var sb strings.Builder
	sb.WriteString("OK")
	for k, v := range r.Extra {
		fmt.Fprintf(&sb, " %s=%s", k, Quote(v))
	}
	return sb.String()
}

// ParseResponse parses a response line received by the client CLI.
func ParseResponse(line []byte) (*Response, error) {
	lx := New(line)
	tok, err := lx.Next()
	if err != nil || tok.Kind != TokKeyword {
		return nil, fmt.Errorf("wire: malformed response")
	}
	switch tok.Text {
	case "OK":
		resp := &Response{OK: true, Extra: map[string]string{}}
		for {
			k, err := lx.Next()
			if err != nil {
				return nil, err
			}
			if k.Kind == TokEOF {
				break
			}
			eq, err := lx.Next()
			if err != nil || eq.Kind != TokPunct || eq.Text != "=" {
				return nil, fmt.Errorf("wire: expected '=' in OK response")
			}
			v, err := lx.Next()
			if err != nil {
				return nil, err
			}
			resp.Extra[k.Text] = valueText(v)
		}
		return resp, nil
	case "ERROR":
		resp := &Response{OK: false}
		for {
			k, err := lx.Next()
			if err != nil {
				return nil, err
			}
			if k.Kind == TokEOF {
				break
			}
			eq, err := lx.Next()
			if err != nil || eq.Kind != TokPunct || eq.Text != "=" {
				return nil, fmt.Errorf("wire: expected '=' in ERROR response")
			}
			v, err := lx.Next()
			if err != nil {
				return nil, err
			}
			switch strings.ToUpper(k.Text) {
			case "CODE":
				if v.Kind == TokInt {
					resp.Code = errcode.CodeError(v.Int)
				} else if n, perr := strconv.Atoi(v.Text); perr == nil {
					resp.Code = errcode.CodeError(n)
				}
			case "MESSAGE":
				resp.Message = valueText(v)
			}
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("wire: unexpected response verb %q", tok.Text)
	}
}

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

package session

// escState is the DATA-phase escape processor state machine (spec.md
// §4.12): CHR after an ordinary byte, EOL right after a line
// terminator (the only position the escape byte is recognised), ESC
// while awaiting the single command byte.
type escState int

const (
	escCHR escState = iota
	escEOL
	escESC
)

// Cmd identifies the single-byte command consumed in the ESC state.
type Cmd int

const (
	CmdNone Cmd = iota
	CmdClose
	CmdHelp
	CmdBreak
	CmdForce
	CmdJoin
	CmdMonitor
	CmdLogReplay
	CmdQuiet
	CmdReset
	CmdSuspend
	CmdUnknown
)

// Escape is a per-client escape-sequence processor (spec.md §4.12).
type Escape struct {
	state   escState
	EscByte byte // default '&'
}

// NewEscape returns a processor using escByte (or '&' if zero).
func NewEscape(escByte byte) *Escape {
	if escByte == 0 {
		escByte = '&'
	}
	return &Escape{EscByte: escByte}
}

// Feed consumes in, appending forwardable bytes to out and appending
// any triggered commands to cmds. A doubled escape byte forwards a
// single literal escape byte and emits no command.
func (e *Escape) Feed(out []byte, cmds []Cmd, in []byte) ([]byte, []Cmd) {
	for _, b := range in {
		switch e.state {
		case escESC:
			if b == e.EscByte {
				out = append(out, e.EscByte)
			} else if c := classify(b); c != CmdNone {
				cmds = append(cmds, c)
			} else {
				cmds = append(cmds, CmdUnknown)
			}
			e.state = escCHR
		default:
			if b == e.EscByte && e.state == escEOL {
				e.state = escESC
				continue
			}
			out = append(out, b)
			if b == '\r' || b == '\n' {
				e.state = escEOL
			} else {
				e.state = escCHR
			}
		}
	}
	return out, cmds
}

func classify(b byte) Cmd {
	switch b {
	case '.':
		return CmdClose
	case '?':
		return CmdHelp
	case 'B':
		return CmdBreak
	case 'F':
		return CmdForce
	case 'J':
		return CmdJoin
	case 'M':
		return CmdMonitor
	case 'L':
		return CmdLogReplay
	case 'Q':
		return CmdQuiet
	case 'R':
		return CmdReset
	case 'Z':
		return CmdSuspend
	default:
		return CmdNone
	}
}

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

// Package telnet implements the telnet console driver (C6, spec.md
// §4.6): TCP connect with a DOWN/PENDING/UP state machine driven by the
// reactor, an IAC option-negotiation processor, and exponential
// reconnect backoff via internal/driver.
package telnet

const (
	IAC  = 0xFF
	DONT = 0xFE
	DO   = 0xFD
	WONT = 0xFC
	WILL = 0xFB
	SB   = 0xFA
	SE   = 0xF0

	OptBinary = 0
	OptEcho   = 1
	OptSGA    = 3
)

type iacState int

const (
	stNormal iacState = iota
	stIAC
	stOpt // after DO/DONT/WILL/WONT, awaiting the option byte
	stSB  // subnegotiation, discarding until IAC SE
	stSBIAC
)

// Processor implements the IAC byte-stream state machine from spec.md
// §4.6: NORMAL/IAC/IAC+(DO|DONT|WILL|WONT)/IAC+SB.
type Processor struct {
	state   iacState
	pendCmd byte // DO/DONT/WILL/WONT awaiting its option byte

	// Accepted reports whether a given option has negotiated into
	// effect, keyed by option id. Only BINARY/ECHO/SGA are ever true.
	Accepted map[byte]bool

	// Send is called with raw IAC bytes the processor wants written to
	// the peer (replies to DO/WILL), via write_obj_data semantics.
	Send func(cmd byte, opt byte)

	// Notice is called when a previously-accepted option is retracted
	// (spec.md §4.6 "log at NOTICE the rare loss of BINARY/ECHO/SGA").
	Notice func(format string, args ...any)
}

// NewProcessor returns an IAC processor with BINARY/ECHO/SGA accepted
// by policy (negotiation still has to complete per option).
func NewProcessor() *Processor {
	return &Processor{Accepted: make(map[byte]bool)}
}

// Feed processes raw bytes from the peer, returning the subset destined
// for the downstream object buffer (escaped 0xFF and ordinary bytes),
// with IAC commands consumed and dispatched.
func (p *Processor) Feed(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, b := range in {
		switch p.state {
		case stNormal:
			if b == IAC {
				p.state = stIAC
			} else {
				out = append(out, b)
			}
		case stIAC:
			switch b {
			case IAC:
				out = append(out, IAC)
				p.state = stNormal
			case DO, DONT, WILL, WONT:
				p.pendCmd = b
				p.state = stOpt
			case SB:
				p.state = stSB
			default:
				// Two-byte command with no option; return to NORMAL.
				p.state = stNormal
			}
		case stOpt:
			p.handleNegotiation(p.pendCmd, b)
			p.state = stNormal
		case stSB:
			if b == IAC {
				p.state = stSBIAC
			}
		case stSBIAC:
			if b == SE {
				p.state = stNormal
			} else {
				p.state = stSB
			}
		}
	}
	return out
}

func (p *Processor) handleNegotiation(cmd, opt byte) {
	wanted := opt == OptBinary || opt == OptEcho || opt == OptSGA

	switch cmd {
	case DO:
		if wanted {
			p.reply(WILL, opt)
			p.Accepted[opt] = true
		} else {
			p.reply(WONT, opt)
		}
	case WILL:
		if wanted {
			p.reply(DO, opt)
			p.Accepted[opt] = true
		} else {
			p.reply(DONT, opt)
		}
	case DONT:
		if p.Accepted[opt] && p.Notice != nil {
			p.Notice("peer sent DONT for previously accepted option %d", opt)
		}
		p.Accepted[opt] = false
	case WONT:
		if p.Accepted[opt] && p.Notice != nil {
			p.Notice("peer retracted option %d", opt)
		}
		p.Accepted[opt] = false
	}
}

func (p *Processor) reply(cmd, opt byte) {
	if p.Send != nil {
		p.Send(cmd, opt)
	}
}

// EncodeCommand renders cmd(+opt) as raw IAC bytes ready for
// write_obj_data, per spec.md §4.6 "writes IAC + cmd (+ opt) into the
// object buffer".
func EncodeCommand(cmd byte, opt byte) []byte {
	if opt == 0xFF { // sentinel meaning "no option byte"
		return []byte{IAC, cmd}
	}
	return []byte{IAC, cmd, opt}
}

// InitialOptionRequests returns the byte sequence sent on entering UP:
// DO BINARY, DO ECHO, DO SGA, WILL BINARY, WILL SGA (spec.md §4.6).
func InitialOptionRequests() []byte {
	var out []byte
	out = append(out, EncodeCommand(DO, OptBinary)...)
	out = append(out, EncodeCommand(DO, OptEcho)...)
	out = append(out, EncodeCommand(DO, OptSGA)...)
	out = append(out, EncodeCommand(WILL, OptBinary)...)
	out = append(out, EncodeCommand(WILL, OptSGA)...)
	return out
}

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

package logfile

// sanitizeState is the three-state machine from spec.md §4.11.
type sanitizeState int

const (
	stateInit sanitizeState = iota
	stateCR
	stateLF
)

// Sanitizer converts raw console bytes into a log-safe, control-char-
// escaped stream. The output bound is 2x the input (spec.md §4.11), so
// the zero value is ready to use and stateful across calls.
type Sanitizer struct {
	state sanitizeState
}

// Sanitize appends the sanitised form of in to dst and returns the
// extended slice. Per spec.md §4.11:
//   - CR: INIT/LF -> CR; CR -> CR (coalesced, no extra output)
//   - LF: emit "\r\n", state -> LF
//   - other: if state was CR, emit "\r\n" first; strip to 7 bits; bytes
//     <0x20 become '^'+(c+'@'); 0x7F becomes "^?"; otherwise pass through
func (s *Sanitizer) Sanitize(dst []byte, in []byte) []byte {
	for _, c := range in {
		switch c {
		case '\r':
			s.state = stateCR
		case '\n':
			dst = append(dst, '\r', '\n')
			s.state = stateLF
		default:
			if s.state == stateCR {
				dst = append(dst, '\r', '\n')
			}
			c &= 0x7F
			switch {
			case c < 0x20:
				dst = append(dst, '^', c+'@')
			case c == 0x7F:
				dst = append(dst, '^', '?')
			default:
				dst = append(dst, c)
			}
			s.state = stateInit
		}
	}
	return dst
}

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

// Package wire implements the line-oriented client<->daemon request
// protocol (C13, spec.md §4.13/§6) and its lexer, which also serves the
// configuration file format (spec.md §6 "the same lexer as the wire").
// The tokenizing rules are grounded on the original conman lexer
// (original_source/lex.c/lex.h): whitespace and `#`-to-EOL comments are
// skipped, a backslash immediately before a newline escapes it, keywords
// match case-insensitively, and quoted strings carry embedded quote
// characters high-bit-encoded rather than escaped.
package wire

import (
	"fmt"
	"strings"
)

// MaxLine is the longest line (in bytes, before trailing NL) the
// protocol accepts; longer lines yield BAD_REQUEST (spec.md §6).
const MaxLine = 4096

// TokenKind discriminates what a Token carries.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokKeyword           // a recognized wire keyword, case-folded to upper
	TokIdent             // an unquoted bareword that is not a known keyword
	TokString            // a quoted string, already high-bit decoded
	TokInt               // an integer literal
	TokPunct             // a single-character punctuation token, e.g. '='
)

// Token is one lexical unit produced by Lex.
type Token struct {
	Kind TokenKind
	Text string // decoded text for TokString/TokIdent/TokKeyword; literal for TokInt/TokPunct
	Int  int64
}

// Keywords is the fixed wire-protocol keyword set (spec.md §4.13),
// matched case-insensitively; tokenizing folds a matching bareword to
// its canonical upper-case form.
var Keywords = map[string]bool{
	"OK": true, "ERROR": true, "HELLO": true, "QUERY": true,
	"MONITOR": true, "CONNECT": true, "GOODBYE": true, "CODE": true,
	"MESSAGE": true, "USER": true, "CONSOLE": true, "PROGRAM": true,
	"OPTION": true, "BROADCAST": true, "FORCE": true, "JOIN": true,
	"QUIET": true, "REGEX": true, "RESET": true, "TTY": true,
	"SERVER": true, "GLOBAL": true, "NAME": true, "DEV": true,
	"LOG": true, "LOGOPTS": true, "SEROPTS": true, "IPMIOPTS": true,
}

// Lexer tokenizes a single line (or a multi-line config buffer) per the
// Laws of the Lexer in original_source/lex.h.
type Lexer struct {
	buf  []byte
	pos  int
	line int
}

// New returns a Lexer over buf. Line numbering starts at 1.
func New(buf []byte) *Lexer {
	return &Lexer{buf: buf, line: 1}
}

// Line reports the 1-based line number of the most recently lexed token.
func (l *Lexer) Line() int { return l.line }

func (l *Lexer) peek() byte {
	if l.pos >= len(l.buf) {
		return 0
	}
	return l.buf[l.pos]
}

func (l *Lexer) at(off int) byte {
	if l.pos+off >= len(l.buf) {
		return 0
	}
	return l.buf[l.pos+off]
}

// skipWhitespaceAndComments consumes spaces/tabs, `#...`-to-EOL
// comments, and backslash-newline line continuations, per lex.h. It
// stops at an un-escaped newline so callers can surface TokEOF per line.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.buf) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '\\' && (l.at(1) == '\n' || (l.at(1) == '\r' && l.at(2) == '\n')):
			l.pos++ // consume backslash
			if l.peek() == '\r' {
				l.pos++
			}
			l.pos++ // consume \n
			l.line++
		case c == '#':
			for l.pos < len(l.buf) && l.peek() != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// Next returns the next token, or a TokEOF once the line/buffer is
// exhausted. A malformed quoted string or stray byte is reported as an
// error rather than a token kind, mirroring lex_next returning LEX_ERR.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.buf) {
		return Token{Kind: TokEOF}, nil
	}
	c := l.peek()
	if c == '\n' {
		l.pos++
		l.line++
		return Token{Kind: TokEOF}, nil
	}

	switch {
	case c == '\'' || c == '"':
		return l.lexQuoted(c)
	case c == '+' || c == '-' || isDigit(c):
		return l.lexNumberOrPunct()
	case isIdentStart(c):
		return l.lexIdent()
	default:
		l.pos++
		return Token{Kind: TokPunct, Text: string(c)}, nil
	}
}

func (l *Lexer) lexQuoted(quote byte) (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.buf) {
			return Token{}, fmt.Errorf("wire: unterminated string starting at byte %d", start)
		}
		c := l.buf[l.pos]
		if c == '\n' || c == '\r' {
			return Token{}, fmt.Errorf("wire: unterminated string (newline in quotes) at byte %d", start)
		}
		if c == quote {
			l.pos++
			break
		}
		// High-bit-encoded quote characters decode by clearing the
		// high bit (original_source/lex.c lex_decode).
		sb.WriteByte(c & 0x7F)
		l.pos++
	}
	return Token{Kind: TokString, Text: sb.String()}, nil
}

func (l *Lexer) lexNumberOrPunct() (Token, error) {
	start := l.pos
	if c := l.peek(); c == '+' || c == '-' {
		if !isDigit(l.at(1)) {
			l.pos++
			return Token{Kind: TokPunct, Text: string(c)}, nil
		}
		l.pos++
	}
	for isDigit(l.peek()) {
		l.pos++
	}
	text := string(l.buf[start:l.pos])
	var n int64
	neg := false
	s := text
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	for _, d := range []byte(s) {
		n = n*10 + int64(d-'0')
	}
	if neg {
		n = -n
	}
	return Token{Kind: TokInt, Text: text, Int: n}, nil
}

func (l *Lexer) lexIdent() (Token, error) {
	start := l.pos
	for isIdentCont(l.peek()) {
		l.pos++
	}
	text := string(l.buf[start:l.pos])
	upper := strings.ToUpper(text)
	if Keywords[upper] {
		return Token{Kind: TokKeyword, Text: upper}, nil
	}
	return Token{Kind: TokIdent, Text: text}, nil
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentCont(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// Encode high-bit-encodes every embedded quote character in s so the
// result may be safely wrapped in quotes by the sender without being
// mistaken for the string's terminator (original_source/lex.c
// lex_encode; spec.md §6 "sender-encoded by setting the high bit").
func Encode(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '\'' || c == '"' {
			b[i] = c | 0x80
		}
	}
	return string(b)
}

// Decode clears the high bit on every byte of s, undoing Encode.
func Decode(s string) string {
	b := []byte(s)
	for i, c := range b {
		b[i] = c & 0x7F
	}
	return string(b)
}

// Quote wraps s in double quotes, encoding any embedded quote bytes
// first, ready to be written onto the wire.
func Quote(s string) string {
	return `"` + Encode(s) + `"`
}

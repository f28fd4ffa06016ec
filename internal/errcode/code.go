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

// Package errcode implements the wire error taxonomy of the client protocol
// (§7 of the specification) as a small numeric CodeError type with a
// message registry, the way the teacher library resolves error codes to
// human text through a per-code registered function instead of a fixed
// switch statement.
package errcode

import "sync"

// CodeError is a numeric protocol error code, serialized on the wire as
// `CODE=<n>` and resolved to a human message for the `MESSAGE='...'` field.
type CodeError uint16

const (
	None CodeError = iota
	Local
	BadRequest
	BadRegex
	Authenticate
	NoConsoles
	TooManyConsoles
	BusyConsoles
	NoResources
)

var (
	mu  sync.RWMutex
	reg = map[CodeError]string{
		None:            "no error",
		Local:           "local client error",
		BadRequest:      "bad request",
		BadRegex:        "invalid console pattern",
		Authenticate:    "authentication failure",
		NoConsoles:      "found no matching console.",
		TooManyConsoles: "found multiple consoles.",
		BusyConsoles:    "found console(s) already in use.",
		NoResources:     "insufficient resources.",
	}
)

// RegisterMessage overrides (or adds) the human message for a code. Safe
// for concurrent use; callers normally do this once at init time to
// localize or customize wording.
func RegisterMessage(code CodeError, message string) {
	mu.Lock()
	defer mu.Unlock()
	reg[code] = message
}

// Message returns the registered human text for code, or a generic
// fallback if nothing was registered.
func (c CodeError) Message() string {
	mu.RLock()
	defer mu.RUnlock()
	if m, ok := reg[c]; ok {
		return m
	}
	return "unknown error"
}

func (c CodeError) Uint16() uint16 { return uint16(c) }

// Error implements the error interface so a CodeError can be returned and
// compared like any other Go error.
type Error struct {
	Code    CodeError
	Detail  string
	Parents []error
}

// New builds an Error, defaulting Detail to the code's registered message
// when detail is empty.
func New(code CodeError, detail string, parents ...error) *Error {
	if detail == "" {
		detail = code.Message()
	}
	return &Error{Code: code, Detail: detail, Parents: parents}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Detail
}

// Is reports whether target carries the same CodeError, supporting
// errors.Is(err, errcode.New(errcode.BusyConsoles, "")).
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

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

// Package term provides cmd/conman's terminal handling: colorized
// status output in the style of the teacher's console package, and raw
// mode so in-band escape-byte sequences reach the daemon unmangled by
// local line editing.
package term

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

// Style is a category of client-side status text, each bound to its own
// color the way the teacher's console.colorType binds ColorPrint/
// ColorPrompt to distinct *color.Color values.
type Style uint8

const (
	StyleInfo Style = iota
	StylePrompt
	StyleError
)

var palette = map[Style]*color.Color{
	StyleInfo:   color.New(color.FgCyan),
	StylePrompt: color.New(color.FgYellow),
	StyleError:  color.New(color.FgRed, color.Bold),
}

// Stdout returns an ANSI-capable writer for the process's stdout. When
// disableColor is set (e.g. stdout isn't a tty, or -Q/quiet scripting
// use), the writer strips color codes instead of emitting them.
func Stdout(disableColor bool) io.Writer {
	w := colorable.NewColorableStdout()
	if disableColor {
		return colorable.NewNonColorable(w)
	}
	return w
}

// Fprintf writes a formatted message to w in the style's color, falling
// back to plain fmt.Fprintf for an unrecognized style.
func (s Style) Fprintf(w io.Writer, format string, args ...any) {
	if c, ok := palette[s]; ok {
		_, _ = c.Fprintf(w, format, args...)
		return
	}
	_, _ = fmt.Fprintf(w, format, args...)
}

// Fprintln writes text to w in the style's color followed by a newline.
func (s Style) Fprintln(w io.Writer, text string) {
	if c, ok := palette[s]; ok {
		_, _ = c.Fprintln(w, text)
		return
	}
	_, _ = fmt.Fprintln(w, text)
}

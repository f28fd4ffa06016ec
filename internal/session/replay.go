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

import (
	"fmt"

	"github.com/dun/conman-sub000/internal/object"
)

// Replay implements the ESC L command (spec.md §4.12): a no-op in
// broadcast mode, otherwise the last R bytes of the single console
// writer's logfile, framed by begin/end banners and written as a single
// informational blob.
func Replay(console *object.Object, logfile *object.Object, r int) []byte {
	if logfile == nil || logfile.Buf == nil {
		return nil
	}
	tail := logfile.Buf.Tail(r)

	var out []byte
	out = append(out, []byte(fmt.Sprintf("Begin log replay of console [%s]\r\n", console.Name))...)
	out = append(out, tail...)
	out = append(out, []byte(fmt.Sprintf("End log replay of console [%s]\r\n", console.Name))...)
	return out
}

// ReplayForSession resolves the replay window for a session that is
// attached to exactly one console (broadcast sessions get no replay),
// looking up that console's logfile among its readers.
func ReplayForSession(s *Session, replayBytes int) []byte {
	if len(s.targets) != 1 {
		return nil
	}
	console := s.targets[0]
	var logfile *object.Object
	for _, r := range console.Readers {
		if r.Kind == object.KindLogfile {
			logfile = r
			break
		}
	}
	if logfile == nil {
		return nil
	}
	return Replay(console, logfile, replayBytes)
}

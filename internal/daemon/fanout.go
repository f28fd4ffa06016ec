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
	"github.com/dun/conman-sub000/internal/logfile"
	"github.com/dun/conman-sub000/internal/metrics"
	"github.com/dun/conman-sub000/internal/object"
)

// fanout drains whatever src.OnReadable just appended to src.Buf and
// copies that single read burst into every one of src.Readers' buffers
// before returning, matching spec.md §5's ordering rule ("for each
// source, the entire read burst is copied into each reader's buffer
// before the next source is processed"). A console's logfile reader
// additionally gets the bytes written to disk through its Sink, since
// nothing else drains a logfile object's buffer (it holds a replay
// mirror only, consumed by ESC L, not by a reactor Member).
//
// It is driven with a console object as the source when device bytes
// arrive, fanning out to its attached clients. DATA-phase keystrokes do
// not pass through it: clientMember.feedData writes them straight into
// each target console's buffer, which the console driver's OnWritable
// then drains to the device.
func fanout(src *object.Object, sinks map[*object.Object]*logfile.Sink) {
	chunk := src.Buf.PeekDrain()
	if len(chunk) == 0 {
		return
	}
	src.Buf.Advance(len(chunk))
	if src.Kind != object.KindClient {
		metrics.BytesTotal.WithLabelValues(src.Name, "read").Add(float64(len(chunk)))
	}
	for _, r := range src.Readers {
		r.Buf.Write(chunk, false)
		if sink := sinks[r]; sink != nil {
			_, _ = sink.Write(chunk)
		}
	}
}

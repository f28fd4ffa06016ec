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
	"regexp"
	"strings"
	"time"

	"github.com/dun/conman-sub000/internal/backoff"
	"github.com/dun/conman-sub000/internal/errcode"
	"github.com/dun/conman-sub000/internal/object"
)

// MatchConsoles combines every pattern into a single case-insensitive
// alternation regex and returns every console object in all whose name
// matches end-to-end, sorted per spec.md §4.2 (spec.md §4.12). When
// regexMode is false, each pattern is matched as a literal (quoted).
func MatchConsoles(all []*object.Object, patterns []string, regexMode bool) ([]*object.Object, *errcode.Error) {
	if len(patterns) == 0 {
		return nil, errcode.New(errcode.NoConsoles, "")
	}

	parts := make([]string, len(patterns))
	for i, p := range patterns {
		if regexMode {
			parts[i] = "(?:" + p + ")"
		} else {
			parts[i] = regexp.QuoteMeta(p)
		}
	}
	full := "^(?i:" + strings.Join(parts, "|") + ")$"
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, errcode.New(errcode.BadRegex, err.Error())
	}

	var matched []*object.Object
	for _, o := range all {
		if o.IsConsole() && re.MatchString(o.Name) {
			matched = append(matched, o)
		}
	}
	if len(matched) == 0 {
		return nil, errcode.New(errcode.NoConsoles, "")
	}
	object.SortConsoles(matched)
	return matched, nil
}

// ValidateForConnect enforces spec.md §4.12's CONNECT cardinality and
// busy rules: more than one match requires BROADCAST; without FORCE and
// without JOIN, any console already carrying a writer is rejected with
// BUSY_CONSOLES and a detail line per offending console naming its
// writer's idle time.
func ValidateForConnect(matched []*object.Object, broadcast, force, join bool) *errcode.Error {
	if len(matched) > 1 && !broadcast {
		return errcode.New(errcode.TooManyConsoles, "")
	}
	if force || join {
		return nil
	}

	var busy []string
	for _, c := range matched {
		for _, w := range c.Writers {
			idle := time.Since(w.LastRW)
			busy = append(busy, fmt.Sprintf("%s (idle %s)", c.Name, backoff.FormatIdle(idle)))
		}
	}
	if len(busy) > 0 {
		return errcode.New(errcode.BusyConsoles, strings.Join(busy, ", "))
	}
	return nil
}

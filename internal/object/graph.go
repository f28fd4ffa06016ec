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

package object

import (
	"sort"
	"unicode"
)

// Link appends dst to src.Readers and src to dst.Writers (spec.md §4.2).
func Link(src, dst *Object) {
	if src == nil || dst == nil || src == dst {
		return
	}
	if !src.hasReader(dst) {
		src.Readers = append(src.Readers, dst)
	}
	if !dst.hasWriter(src) {
		dst.Writers = append(dst.Writers, src)
	}
}

// UnlinkPair removes the src->dst edge in both directions. Link followed
// by UnlinkPair is a no-op on both lists (spec.md §8 round-trip law).
func UnlinkPair(src, dst *Object) {
	if src == nil || dst == nil {
		return
	}
	src.Readers = removeObj(src.Readers, dst)
	dst.Writers = removeObj(dst.Writers, src)
}

// Unlink removes obj from every peer's Readers/Writers list (used before
// destruction, spec.md §4.2/§9).
func Unlink(obj *Object) {
	if obj == nil {
		return
	}
	for _, r := range append([]*Object(nil), obj.Readers...) {
		r.Writers = removeObj(r.Writers, obj)
	}
	for _, w := range append([]*Object(nil), obj.Writers...) {
		w.Readers = removeObj(w.Readers, obj)
	}
	obj.Readers = nil
	obj.Writers = nil
}

// UnlinkAllWriters disconnects every existing writer of obj, used by a
// forcing CONNECT takeover (spec.md §4.2 "Force (takeover)").
func UnlinkAllWriters(obj *Object) []*Object {
	evicted := append([]*Object(nil), obj.Writers...)
	for _, w := range evicted {
		UnlinkPair(w, obj)
	}
	return evicted
}

// SortConsoles orders console names case-sensitive-until-digits: names
// sharing a common non-digit prefix compare their trailing integer
// suffixes numerically, so "foo1" < "foo2" < "foo10" (spec.md §4.2).
func SortConsoles(objs []*Object) {
	sort.Slice(objs, func(i, j int) bool {
		return lessName(objs[i].Name, objs[j].Name)
	})
}

// SortNames is the string-only variant of SortConsoles.
func SortNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return lessName(names[i], names[j])
	})
}

func lessName(a, b string) bool {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] && !unicode.IsDigit(rune(a[i])) {
		i++
	}
	// Common prefix ends at i. If both remainders are pure digit runs,
	// compare numerically; otherwise fall back to byte-wise compare of
	// everything from the divergence point.
	asuf, aok := digitSuffix(a[i:])
	bsuf, bok := digitSuffix(b[i:])
	if aok && bok {
		if len(asuf) != len(bsuf) {
			// same numeric value can't have differing lengths
			// unless one has leading content consumed already;
			// compare by value below regardless of length.
		}
		return numLess(asuf, bsuf)
	}
	return a[i:] < b[i:]
}

func digitSuffix(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return "", false
		}
	}
	return s, true
}

// numLess compares two non-empty decimal-digit strings by numeric value,
// avoiding overflow for arbitrarily long digit runs.
func numLess(a, b string) bool {
	a = trimLeadingZeros(a)
	b = trimLeadingZeros(b)
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

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

// Package xctx provides a small generic, thread-safe key/value store used
// to attach driver- or session-specific attributes to the objects in the
// reactor's master list without growing the Object struct with one field
// per variant.
package xctx

import "sync"

// Store is a generic thread-safe map keyed by K, storing values of any
// type. It is deliberately simpler than a full context.Context: the
// reactor is single-threaded for everything except the IPMI driver
// callback, so the only requirement is safe concurrent Load/Store.
type Store[K comparable] struct {
	mu sync.RWMutex
	m  map[K]any
}

// New returns an empty Store.
func New[K comparable]() *Store[K] {
	return &Store[K]{m: make(map[K]any)}
}

// Store sets key to value.
func (s *Store[K]) Store(key K, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Load returns the value for key and whether it was present.
func (s *Store[K]) Load(key K) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Delete removes key.
func (s *Store[K]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Len returns the number of stored keys.
func (s *Store[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Walk calls fn for every stored key/value pair. fn must not call back
// into the Store (no re-entrant locking).
func (s *Store[K]) Walk(fn func(key K, value any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.m {
		if !fn(k, v) {
			return
		}
	}
}

// Get[V] loads key and type-asserts it to V, returning the zero value and
// false on a miss or type mismatch.
func Get[V any, K comparable](s *Store[K], key K) (V, bool) {
	var zero V
	raw, ok := s.Load(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

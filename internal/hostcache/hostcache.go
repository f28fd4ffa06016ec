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

// Package hostcache caches reverse-DNS lookups for client connections
// (C15, spec.md §4.14), so a busy listener does not re-resolve the same
// peer address on every CONNECT/QUERY. It reuses the expiring sync.Map
// pattern the teacher's cache package builds its generic cache on top
// of, specialised to net.IP -> hostname since the listener never needs
// any other key/value shape.
package hostcache

import (
	"sync"
	"time"
)

type entry struct {
	host string
	at   time.Time
}

// Cache is a reverse-DNS result cache with a fixed expiry. The zero
// value is not usable; use New.
type Cache struct {
	mu  sync.RWMutex
	m   map[string]entry
	ttl time.Duration

	stop chan struct{}
	once sync.Once
}

// New returns a Cache whose entries expire after ttl and starts a
// background janitor goroutine that sweeps expired entries every ttl
// (mirroring the teacher cache's ticker-driven expire loop).
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &Cache{m: make(map[string]entry), ttl: ttl, stop: make(chan struct{})}
	go c.janitor()
	return c
}

func (c *Cache) janitor() {
	t := time.NewTicker(c.ttl)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.m {
		if now.Sub(e.at) >= c.ttl {
			delete(c.m, k)
		}
	}
}

// Lookup returns a cached hostname for addr, if present and unexpired.
func (c *Cache) Lookup(addr string) (string, bool) {
	c.mu.RLock()
	e, ok := c.m[addr]
	c.mu.RUnlock()
	if !ok || time.Since(e.at) >= c.ttl {
		return "", false
	}
	return e.host, true
}

// Store records the resolved hostname for addr.
func (c *Cache) Store(addr, host string) {
	c.mu.Lock()
	c.m[addr] = entry{host: host, at: time.Now()}
	c.mu.Unlock()
}

// Resolve returns the cached hostname for addr, calling resolve and
// caching its result on a miss. resolve is typically net.LookupAddr's
// first result, or addr itself if the lookup fails.
func (c *Cache) Resolve(addr string, resolve func(string) string) string {
	if host, ok := c.Lookup(addr); ok {
		return host
	}
	host := resolve(addr)
	c.Store(addr, host)
	return host
}

// Len reports the number of cached entries (diagnostic/metrics use).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Close stops the janitor goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

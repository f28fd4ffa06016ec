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

// Package runner gives a long-lived daemon component a uniform Start/Stop/
// Restart lifecycle with uptime and last-error tracking, instead of each
// component inventing its own bookkeeping. The daemon's /metrics HTTP
// server is the component that runs under it.
package runner

import (
	"context"
	"sync"
	"time"
)

// Func is a component's start or stop action.
type Func func(ctx context.Context) error

// StartStop tracks one component's running state.
type StartStop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

type startStop struct {
	mu sync.Mutex

	start Func
	stop  Func

	running  bool
	startedAt time.Time

	lastErr error
	errs    []error
}

// New returns a StartStop wrapping start/stop; either may be nil, in
// which case the corresponding transition is a no-op.
func New(start, stop Func) StartStop {
	return &startStop{start: start, stop: stop}
}

func (s *startStop) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	fn := s.start
	s.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.record(err)
		return err
	}
	s.running = true
	s.startedAt = time.Now()
	return nil
}

func (s *startStop) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	fn := s.stop
	s.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.startedAt = time.Time{}
	if err != nil {
		s.record(err)
	}
	return err
}

func (s *startStop) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(ctx)
}

func (s *startStop) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *startStop) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *startStop) ErrorsLast() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *startStop) ErrorsList() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// record must be called with s.mu held.
func (s *startStop) record(err error) {
	s.lastErr = err
	s.errs = append(s.errs, err)
}

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

// Package daemon wires every other internal package into the running
// conmand process (C16, spec.md §4.16): it builds the reactor, the
// configured consoles, the client listener, and the reset-command and
// logging plumbing that the rest of the package references.
package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dun/conman-sub000/internal/confload"
	"github.com/dun/conman-sub000/internal/daemoncfg"
	"github.com/dun/conman-sub000/internal/driver"
	"github.com/dun/conman-sub000/internal/driver/ipmi"
	"github.com/dun/conman-sub000/internal/health"
	"github.com/dun/conman-sub000/internal/hostcache"
	"github.com/dun/conman-sub000/internal/ipmipool"
	"github.com/dun/conman-sub000/internal/listener"
	"github.com/dun/conman-sub000/internal/logfile"
	"github.com/dun/conman-sub000/internal/logrotate"
	"github.com/dun/conman-sub000/internal/metrics"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/resetcmd"
	"github.com/dun/conman-sub000/internal/runner"
)

// Daemon owns the reactor, every console and client object, and the
// supporting dispatchers referenced from console.go and client.go.
type Daemon struct {
	cfg *daemoncfg.Config
	log *logrus.Logger

	reactor *reactor.Reactor
	listen  *listener.Listener
	cache   *hostcache.Cache

	reset       *resetcmd.Dispatcher
	health      *health.Tracker
	sinks       map[*object.Object]*logfile.Sink
	metricsProc runner.StartStop

	mu       sync.Mutex
	consoles []*console
	clients  map[*object.Object]*clientMember

	master masterList
}

// masterList implements session.Lister over the daemon's live object
// set (every console plus every currently attached client), the way the
// session package expects a REQ/QUERY match to see the whole graph.
type masterList struct {
	d *Daemon
}

func (ml masterList) Objects() []*object.Object {
	ml.d.mu.Lock()
	defer ml.d.mu.Unlock()
	objs := make([]*object.Object, 0, len(ml.d.consoles)+len(ml.d.clients))
	for _, c := range ml.d.consoles {
		objs = append(objs, c.obj)
	}
	for obj := range ml.d.clients {
		objs = append(objs, obj)
	}
	return objs
}

// New builds every console and the client listener and registers them
// with a fresh reactor; call Run to start polling.
func New(cfg *daemoncfg.Config, log *logrus.Logger) (*Daemon, error) {
	d := &Daemon{
		cfg:     cfg,
		log:     log,
		cache:   hostcache.New(5 * time.Minute),
		health:  health.New(),
		sinks:   make(map[*object.Object]*logfile.Sink),
		clients: make(map[*object.Object]*clientMember),
	}
	d.master = masterList{d: d}

	r, err := reactor.New(d.reopenLogs)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	d.reactor = r

	if cfg.ResetCmd != "" {
		d.reset = resetcmd.New(r.Timers(), cfg.ResetCmd, cfg.EscapeChar, cfg.ResetCmdTimeout, d.notify)
	}

	var engine ipmi.Engine
	var pool *ipmipool.Pool
	if hasIPMIConsole(cfg.Consoles) {
		engine = ipmi.NewIPMIConsoleEngine("")
		pool = ipmipool.New(len(cfg.Consoles), ipmipool.DefaultPerThreadLimit, ipmipool.DefaultMaxWorkers)
	}

	for _, def := range cfg.Consoles {
		c, err := buildConsole(def, r, cfg.LogDir, cfg.LogSubstChar, cfg.LogTruncate, cfg.StampMinutes, engine, pool, d.sinks)
		if err != nil {
			return nil, err
		}
		d.consoles = append(d.consoles, c)
	}

	addr := ""
	if cfg.LoopbackOnly {
		addr = "127.0.0.1"
	}
	lst, err := listener.New(listener.Options{
		Addr:      addr,
		Port:      cfg.Port,
		Keepalive: cfg.Keepalive,
		Backlog:   listener.DefaultBacklog,
	}, d.cache, d.onAccept)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	d.listen = lst
	r.Register(lst)

	if cfg.MetricsAddr != "" {
		if err := d.startMetricsServer(cfg.MetricsAddr); err != nil {
			return nil, err
		}
	}

	d.schedulePoll()

	return d, nil
}

// startMetricsServer mounts /metrics behind cfg.MetricsAddr on a plain
// net/http server run in its own goroutine: HTTP serving is ancillary
// to the single-threaded reactor core and has no business sharing its
// event loop. Its lifecycle is wrapped in a runner.StartStop so a failed
// listen is recorded the same way any other long-lived component's
// start failure would be.
func (d *Daemon) startMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	d.metricsProc = runner.New(
		func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("daemon: metrics server: %w", err)
			}
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed && d.log != nil {
					d.log.Errorf("daemon: metrics server: %v", err)
				}
			}()
			return nil
		},
		func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	)
	return d.metricsProc.Start(context.Background())
}

// healthPollInterval is how often reconnecting console drivers' DOWN/
// PENDING/UP state is sampled into the health tracker.
const healthPollInterval = 30 * time.Second

func (d *Daemon) schedulePoll() {
	d.reactor.Timers().AddAfter(healthPollInterval, func(any) { d.pollHealth() }, nil)
}

// pollHealth samples every console whose driver tracks reconnect state
// (telnet/unixsock/process/ipmi; serial and testgen have none) into
// internal/health, then rearms itself.
func (d *Daemon) pollHealth() {
	d.pollHealthOnce()
	d.schedulePoll()
}

// pollHealthOnce does a single observation pass with no rescheduling,
// split out so tests can drive it without a live reactor/timer wheel.
func (d *Daemon) pollHealthOnce() {
	d.mu.Lock()
	consoles := make([]*console, len(d.consoles))
	copy(consoles, d.consoles)
	d.mu.Unlock()

	for _, c := range consoles {
		sp, ok := c.driver.(health.StateProvider)
		if !ok {
			continue
		}
		before, _ := d.health.Get(c.obj.Name)
		e := d.health.Observe(c.obj.Name, sp)
		metrics.ConsoleState.WithLabelValues(c.obj.Name).Set(float64(e.State))
		if e.Transitions != before.Transitions && e.State == driver.Up {
			metrics.ReconnectsTotal.WithLabelValues(c.obj.Name, c.driver.Name()).Inc()
		}
	}
}

// Health returns the daemon's console state tracker, consulted by
// /metrics and the startup/diagnostic log lines.
func (d *Daemon) Health() *health.Tracker { return d.health }

func hasIPMIConsole(defs []confload.ConsoleDef) bool {
	for _, def := range defs {
		if confload.ClassifyDev(def.Dev) == confload.DevIPMI {
			return true
		}
	}
	return false
}

// onAccept builds and registers a clientMember for each new connection
// (spec.md §4.15 handing the accepted fd to the session layer).
func (d *Daemon) onAccept(a listener.Accepted) {
	peer := a.PeerHost
	if peer == "" {
		peer = a.PeerAddr
	}
	m := newClientMember(d, a.FD, peer)
	d.mu.Lock()
	d.clients[m.obj] = m
	d.mu.Unlock()
	if d.log != nil {
		d.log.Infof("daemon: accepted client <%s> [session=%s]", peer, m.sessionID())
	}
	d.reactor.Register(m)
}

// removeClient drops obj from the client set once its session has torn
// down (called from clientMember.teardown).
func (d *Daemon) removeClient(obj *object.Object) {
	d.mu.Lock()
	m, ok := d.clients[obj]
	delete(d.clients, obj)
	d.mu.Unlock()
	if ok {
		d.reactor.Unregister(m)
	}
}

// reopenLogs is the reactor's onReconfigure hook (SIGHUP, spec.md §4.4
// step 1): every open logfile sink is reopened so log rotation external
// to conmand (e.g. logrotate(8)) takes effect without a restart.
func (d *Daemon) reopenLogs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.consoles {
		if c.logSink == nil {
			continue
		}
		if d.cfg.LogGzipOnReopen {
			if path := c.logSink.Path(); path != "" {
				if _, err := logrotate.GzipFile(path); err != nil && d.log != nil {
					d.log.Warnf("daemon: gzip log for %s before reopen: %v", c.obj.Name, err)
				}
			}
		}
		if err := c.logSink.Reopen(c.obj.Name); err != nil && d.log != nil {
			d.log.Errorf("daemon: reopen log for %s: %v", c.obj.Name, err)
		}
	}
}

// notify is the resetcmd.Notifier bound to the daemon's logger.
func (d *Daemon) notify(format string, args ...any) {
	if d.log != nil {
		d.log.Infof(format, args...)
	}
}

// Run drives the reactor loop until Shutdown is called; it blocks in
// the calling goroutine exactly like reactor.Reactor.Run.
func (d *Daemon) Run() {
	d.reactor.Run()
}

// Reload requests that the next reactor iteration reopen logfiles and
// re-evaluate console state (SIGHUP).
func (d *Daemon) Reload() {
	d.reactor.RequestReconfigure()
}

// Shutdown stops the reactor loop and releases the listen socket and
// hostname cache (SIGINT/SIGTERM).
func (d *Daemon) Shutdown() {
	d.reactor.Stop()
	_ = d.listen.Close()
	d.cache.Close()
	if d.metricsProc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.metricsProc.Stop(ctx)
	}
}

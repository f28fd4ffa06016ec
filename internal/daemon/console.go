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
	"fmt"
	"strings"

	"github.com/dun/conman-sub000/internal/confload"
	"github.com/dun/conman-sub000/internal/driver/ipmi"
	"github.com/dun/conman-sub000/internal/driver/process"
	"github.com/dun/conman-sub000/internal/driver/serial"
	"github.com/dun/conman-sub000/internal/driver/telnet"
	"github.com/dun/conman-sub000/internal/driver/testgen"
	"github.com/dun/conman-sub000/internal/driver/unixsock"
	"github.com/dun/conman-sub000/internal/hexkey"
	"github.com/dun/conman-sub000/internal/ipmipool"
	"github.com/dun/conman-sub000/internal/logfile"
	"github.com/dun/conman-sub000/internal/netaddr"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/reactor"
	"github.com/dun/conman-sub000/internal/timer"
)

// consoleBufCap is the per-object circular buffer size (spec.md §3 "B,
// recommended >= 8KiB").
const consoleBufCap = 8192

// consoleMember decorates a console driver's reactor.Member so that a
// successful read additionally fans the burst out to every reader
// attached to the console object (spec.md §5 ordering rule), without
// requiring each driver package to know about the object graph beyond
// its own buffer.
type consoleMember struct {
	inner reactor.Member
	obj   *object.Object
	sinks map[*object.Object]*logfile.Sink
}

func (m *consoleMember) FD() int                   { return m.inner.FD() }
func (m *consoleMember) Interest() reactor.Interest { return m.inner.Interest() }
func (m *consoleMember) OnWritable() bool           { return m.inner.OnWritable() }

func (m *consoleMember) OnReadable() bool {
	ok := m.inner.OnReadable()
	fanout(m.obj, m.sinks)
	return ok
}

// console bundles everything the daemon tracks about one configured
// console: its object (the node in the reader/writer graph), its
// driver (for SendBreak and lifecycle), and the optional logfile
// sink/object pair attached as a reader.
type console struct {
	obj     *object.Object
	driver  object.Driver
	logSink *logfile.Sink
	logObj  *object.Object
}

// buildConsole constructs the object/driver/logfile triple for one
// CONSOLE directive and registers whatever needs polling or timer
// arming with r. engine/pool back every IPMI console; a nil engine
// means no IPMIOPTS consoles are configured. sinks is the daemon-wide
// object->logfile.Sink map that fanout consults; this console's own
// logfile entry is added to it here.
func buildConsole(def confload.ConsoleDef, r *reactor.Reactor, logDir string, logSubstChar byte, logTruncate bool, stampMinutes int, engine ipmi.Engine, pool *ipmipool.Pool, sinks map[*object.Object]*logfile.Sink) (*console, error) {
	obj := object.NewObject(def.Name, consoleKind(def), consoleBufCap)
	wheel := r.Timers()

	d, member, err := buildDriverKind(confload.ClassifyDev(def.Dev), def, obj, wheel, r, engine, pool)
	if err != nil {
		return nil, fmt.Errorf("daemon: console %s: %w", def.Name, err)
	}
	obj.Driver = d

	c := &console{obj: obj, driver: d}

	if member != nil {
		r.Register(&consoleMember{inner: member, obj: obj, sinks: sinks})
	}

	switch dv := d.(type) {
	case *serial.Driver:
		if err := dv.Open(); err != nil {
			return nil, fmt.Errorf("daemon: console %s: %w", def.Name, err)
		}
	case *testgen.Driver:
		dv.Start()
	case interface{ Connect() error }:
		// Reconnecting drivers self-schedule a retry on failure, so a
		// Connect error at startup is not fatal; the console simply
		// comes up DOWN and retries on the usual backoff.
		_ = dv.Connect()
	}

	if def.Log != "" {
		logOpts := confload.ParseLogOpts(def.LogOpts)
		logObj := object.NewObject(def.Name+".log", object.KindLogfile, consoleBufCap)
		sink := logfile.New(logObj, wheel, logfile.Options{
			Dir:            logDir,
			Name:           def.Log,
			SubstChar:      logSubstChar,
			Truncate:       logTruncate,
			EnableSanitize: logOpts.Sanitize,
			StampMinutes:   stampMinutes,
		})
		if err := sink.Open(def.Name); err != nil {
			return nil, fmt.Errorf("daemon: console %s: %w", def.Name, err)
		}
		object.Link(obj, logObj)
		c.logObj = logObj
		c.logSink = sink
		sinks[logObj] = sink
	}

	return c, nil
}

func consoleKind(def confload.ConsoleDef) object.Kind {
	switch confload.ClassifyDev(def.Dev) {
	case confload.DevTelnet:
		return object.KindTelnet
	case confload.DevSerial:
		return object.KindSerial
	case confload.DevIPMI:
		return object.KindIPMI
	case confload.DevUnixSock:
		return object.KindUnixSock
	case confload.DevTest:
		return object.KindTest
	default:
		return object.KindProcess
	}
}

// buildDriverKind constructs the concrete driver for kind, returning it
// both as an object.Driver (for obj.Driver/SendBreak) and, where
// applicable, as the reactor.Member the daemon must register: serial
// satisfies reactor.Member directly and testgen is timer-only (nil
// member), telnet/unixsock/process/ipmi register themselves normally.
func buildDriverKind(kind confload.DevKind, def confload.ConsoleDef, obj *object.Object, wheel *timer.Wheel, r *reactor.Reactor, engine ipmi.Engine, pool *ipmipool.Pool) (object.Driver, reactor.Member, error) {
	switch kind {
	case confload.DevSerial:
		opts, err := confload.ParseSerOpts(def.SerOpts)
		if err != nil {
			return nil, nil, err
		}
		d := serial.New(obj, def.Dev, serial.Options{
			BPS: opts.BPS, DataBits: opts.DataBits,
			Parity: serial.Parity(opts.Parity), StopBits: opts.StopBits,
		})
		return d, d, nil

	case confload.DevTelnet:
		hp, err := netaddr.SplitHostPort(def.Dev, 0)
		if err != nil {
			return nil, nil, err
		}
		d := telnet.New(obj, wheel, hp.Host, hp.Port, true, nil)
		return d, d, nil

	case confload.DevUnixSock:
		path := strings.TrimPrefix(def.Dev, "unix:")
		d := unixsock.New(obj, wheel, path, r.RequestReset)
		return d, d, nil

	case confload.DevIPMI:
		host := strings.TrimPrefix(def.Dev, "ipmi:")
		opts, err := confload.ParseIPMIOpts(def.IPMIOpts)
		if err != nil {
			return nil, nil, err
		}
		kg, err := hexkey.Decode(opts.Kg)
		if err != nil {
			return nil, nil, err
		}
		if engine == nil {
			return nil, nil, fmt.Errorf("confload: console %s uses DEV=ipmi: but no IPMI engine is configured", def.Name)
		}
		creds := ipmi.Credentials{
			Username: opts.User, Password: opts.Pass, Kg: kg,
			Privilege: parseIPMIPrivilege(opts.Privilege),
		}
		d := ipmi.New(obj, wheel, host, creds, engine, pool)
		return d, d, nil

	case confload.DevTest:
		d := testgen.New(obj, wheel, testgen.Options{
			BytesPerBurst: 16,
			MinDelay:      0,
			MaxDelay:      0,
			Probability:   100,
		}, 1)
		return d, nil, nil

	default: // confload.DevProcess
		d := process.New(obj, wheel, def.Dev, nil)
		return d, d, nil
	}
}

func parseIPMIPrivilege(s string) ipmi.Privilege {
	switch strings.ToUpper(s) {
	case "USER":
		return ipmi.PrivilegeUser
	case "OPERATOR":
		return ipmi.PrivilegeOperator
	case "ADMIN":
		return ipmi.PrivilegeAdmin
	default:
		return ipmi.PrivilegeDefault
	}
}

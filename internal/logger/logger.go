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

// Package logger wires the daemon/client ambient logging stack: a
// logrus.Logger with a text formatter plus an optional syslog hook, the
// way the teacher's logger package layers logrus hooks onto a base
// logger instead of hand-rolling log levels.
package logger

import (
	"io"
	"log/syslog"
	"strings"

	"github.com/sirupsen/logrus"
	jww "github.com/spf13/jwalterweatherman"
)

// New builds a logrus.Logger writing to w at level, formatted with
// full timestamps (spec.md §7 "written... additionally to syslog/daemon
// log").
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

// AttachSyslog dials the local syslog daemon and adds it as a logrus
// hook at NOTICE priority and above, used for reset-command timeouts
// and other NOTICE-severity events (spec.md §7).
func AttachSyslog(l *logrus.Logger, tag string) error {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_NOTICE, tag)
	if err != nil {
		return err
	}
	l.AddHook(&syslogHook{w: w})
	return nil
}

type syslogHook struct {
	w *syslog.Writer
}

func (h *syslogHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel,
		logrus.WarnLevel, logrus.InfoLevel,
	}
}

func (h *syslogHook) Fire(e *logrus.Entry) error {
	line, err := e.String()
	if err != nil {
		return err
	}
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return h.w.Err(line)
	case logrus.WarnLevel:
		return h.w.Warning(line)
	default:
		return h.w.Notice(line)
	}
}

// BridgeViperDiagnostics redirects jwalterweatherman's package-level
// output - the channel viper logs its own config-merge/decode chatter
// through, independent of any logger callers pass to viper - into l at
// Debug level. Call it once before the first viper.New()/Load so -v
// surfaces viper's internal diagnostics instead of losing them to jww's
// stderr default.
func BridgeViperDiagnostics(l *logrus.Logger) {
	w := &jwwBridge{l: l}
	jww.SetLogOutput(w)
	jww.SetLogThreshold(jww.LevelTrace)
	jww.SetStdoutThreshold(jww.LevelFatal)
}

type jwwBridge struct {
	l *logrus.Logger
}

func (b *jwwBridge) Write(p []byte) (int, error) {
	if line := strings.TrimRight(string(p), "\n"); line != "" {
		b.l.Debug(line)
	}
	return len(p), nil
}

// Informational renders an in-band informational message as the
// "\r\n<ConMan> MSG.\r\n" wire format spec.md §7 specifies for
// join/part/connect/disconnect/reset/replay events.
func Informational(msg string) []byte {
	return []byte("\r\n<ConMan> " + msg + ".\r\n")
}

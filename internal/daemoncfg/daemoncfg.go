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

// Package daemoncfg builds the daemon's runtime Config from the parsed
// configuration file (internal/confload) overlaid with viper-bound CLI
// flags, the way the teacher's config package layers cobra flags over a
// viper-backed settings source.
package daemoncfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/dun/conman-sub000/internal/confload"
)

// DefaultPort is the wire-protocol TCP port (spec.md §6 "port 7890 default").
const DefaultPort = 7890

// Config is the daemon's fully resolved runtime configuration.
type Config struct {
	Port         int
	LoopbackOnly bool
	Keepalive    bool

	PidFile  string
	LockFile string

	LogDir          string
	LogSubstChar    byte
	LogTruncate     bool
	LogGzipOnReopen bool
	StampMinutes    int
	ResetCmd        string
	ResetCmdTimeout time.Duration
	EscapeChar      byte

	// MetricsAddr, if non-empty, is the listen address for the
	// /metrics HTTP endpoint (empty disables it entirely).
	MetricsAddr string

	Consoles []confload.ConsoleDef
}

// Load parses path with confload, then layers viper-bound overrides
// (environment variables prefixed CONMAND_, and any flags already bound
// into v) on top of the file's SERVER/GLOBAL directives.
func Load(path string, v *viper.Viper) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("daemoncfg: open %s: %w", path, err)
	}
	defer f.Close()

	parsed, err := confload.Parse(f)
	if err != nil {
		return nil, err
	}

	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("CONMAND")
	v.AutomaticEnv()

	for k, val := range parsed.Server {
		if !v.IsSet(k) {
			v.Set(k, val)
		}
	}
	for k, val := range parsed.Global {
		if !v.IsSet(k) {
			v.Set(k, val)
		}
	}

	cfg := &Config{
		Port:            intOr(v, "PORT", DefaultPort),
		LoopbackOnly:    boolOr(v, "LOOPBACKONLY", false),
		Keepalive:       boolOr(v, "KEEPALIVE", true),
		PidFile:         stringOr(v, "PIDFILE", "/var/run/conmand.pid"),
		LockFile:        stringOr(v, "LOCKFILE", path),
		LogDir:          stringOr(v, "LOGDIR", "/var/log/conman"),
		LogSubstChar:    byteOr(v, "LOGSUBSTCHAR", '&'),
		LogTruncate:     boolOr(v, "LOGTRUNCATE", false),
		LogGzipOnReopen: boolOr(v, "LOGGZIPONREOPEN", false),
		StampMinutes:    intOr(v, "TIMESTAMP", 0),
		ResetCmd:        stringOr(v, "RESETCMD", ""),
		ResetCmdTimeout: time.Duration(intOr(v, "RESETCMDTIMEOUT", 10)) * time.Second,
		EscapeChar:      byteOr(v, "ESCAPECHAR", '&'),
		MetricsAddr:     stringOr(v, "METRICSADDR", ""),
		Consoles:        parsed.Consoles,
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("daemoncfg: invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

func stringOr(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

func intOr(v *viper.Viper, key string, def int) int {
	s := v.GetString(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func boolOr(v *viper.Viper, key string, def bool) bool {
	s := v.GetString(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func byteOr(v *viper.Viper, key string, def byte) byte {
	s := v.GetString(key)
	if s == "" {
		return def
	}
	return s[0]
}

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

package confload

import (
	"fmt"
	"strconv"
	"strings"
)

// DevKind is the driver family a CONSOLE's DEV value selects (spec.md §6).
type DevKind int

const (
	DevUnknown DevKind = iota
	DevTelnet
	DevSerial
	DevIPMI
	DevUnixSock
	DevTest
	DevProcess
)

// ClassifyDev discriminates dev per spec.md §6: "host:port -> telnet;
// /dev/... tty -> serial; ipmi:<host> -> IPMI; unix:<path> -> unix
// socket; test: -> test; otherwise an executable -> process".
func ClassifyDev(dev string) DevKind {
	switch {
	case strings.HasPrefix(dev, "ipmi:"):
		return DevIPMI
	case strings.HasPrefix(dev, "unix:"):
		return DevUnixSock
	case dev == "test:" || strings.HasPrefix(dev, "test:"):
		return DevTest
	case strings.HasPrefix(dev, "/dev/"):
		return DevSerial
	case looksLikeHostPort(dev):
		return DevTelnet
	default:
		return DevProcess
	}
}

func looksLikeHostPort(dev string) bool {
	i := strings.LastIndex(dev, ":")
	if i <= 0 || i == len(dev)-1 {
		return false
	}
	_, err := strconv.Atoi(dev[i+1:])
	return err == nil
}

// SerialOpts is a parsed SEROPTS string ("bps,databits[NOE]stopbits").
type SerialOpts struct {
	BPS      int
	DataBits int
	Parity   byte // 'N', 'O', or 'E'
	StopBits int
}

// ParseSerOpts parses spec.md §6's SEROPTS grammar.
func ParseSerOpts(s string) (SerialOpts, error) {
	var o SerialOpts
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return o, fmt.Errorf("confload: SEROPTS %q: want bps,databits[NOE]stopbits", s)
	}
	bps, err := strconv.Atoi(parts[0])
	if err != nil {
		return o, fmt.Errorf("confload: SEROPTS %q: invalid bps", s)
	}
	o.BPS = bps

	rest := parts[1]
	if len(rest) < 3 {
		return o, fmt.Errorf("confload: SEROPTS %q: invalid databits/parity/stopbits", s)
	}
	db, err := strconv.Atoi(rest[:1])
	if err != nil {
		return o, fmt.Errorf("confload: SEROPTS %q: invalid databits", s)
	}
	o.DataBits = db
	parity := rest[1]
	if parity != 'N' && parity != 'O' && parity != 'E' {
		return o, fmt.Errorf("confload: SEROPTS %q: parity must be N, O, or E", s)
	}
	o.Parity = parity
	sb, err := strconv.Atoi(rest[2:])
	if err != nil {
		return o, fmt.Errorf("confload: SEROPTS %q: invalid stopbits", s)
	}
	o.StopBits = sb
	return o, nil
}

// LogOpts is a parsed LOGOPTS comma-list (spec.md §6).
type LogOpts struct {
	Sanitize  bool
	Timestamp bool
}

// ParseLogOpts parses "sanitize"/"nosanitize"/"timestamp"/"notimestamp"
// tokens, defaulting both flags false when absent.
func ParseLogOpts(s string) LogOpts {
	var o LogOpts
	for _, tok := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "sanitize":
			o.Sanitize = true
		case "nosanitize":
			o.Sanitize = false
		case "timestamp":
			o.Timestamp = true
		case "notimestamp":
			o.Timestamp = false
		}
	}
	return o
}

// IPMIOpts is a parsed IPMIOPTS comma-list of "X:value" tokens, X in
// {U,P,K,L,C,W} (spec.md §6).
type IPMIOpts struct {
	User        string
	Pass        string
	Kg          string
	Privilege   string
	CipherSuite string
	Workaround  string
}

// ParseIPMIOpts parses the IPMIOPTS grammar.
func ParseIPMIOpts(s string) (IPMIOpts, error) {
	var o IPMIOpts
	if s == "" {
		return o, nil
	}
	for _, tok := range strings.Split(s, ",") {
		i := strings.Index(tok, ":")
		if i < 0 {
			return o, fmt.Errorf("confload: IPMIOPTS %q: expected X:value", tok)
		}
		key, val := tok[:i], tok[i+1:]
		switch strings.ToUpper(key) {
		case "U":
			o.User = val
		case "P":
			o.Pass = val
		case "K":
			o.Kg = val
		case "L":
			o.Privilege = val
		case "C":
			o.CipherSuite = val
		case "W":
			o.Workaround = val
		default:
			return o, fmt.Errorf("confload: IPMIOPTS %q: unknown key %q", tok, key)
		}
	}
	return o, nil
}

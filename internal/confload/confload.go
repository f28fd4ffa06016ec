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

// Package confload parses the conmand configuration file (spec.md §6):
// SERVER/GLOBAL/CONSOLE directives tokenized with the same lexer that
// parses the wire protocol (internal/wire), since spec.md explicitly
// calls out that the two share a grammar.
package confload

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dun/conman-sub000/internal/wire"
)

// ConsoleDef is one parsed CONSOLE directive.
type ConsoleDef struct {
	Name     string
	Dev      string
	Log      string
	LogOpts  string
	SerOpts  string
	IPMIOpts string
}

// File is the fully parsed configuration: the SERVER/GLOBAL key=value
// maps plus every CONSOLE directive in file order.
type File struct {
	Server   map[string]string
	Global   map[string]string
	Consoles []ConsoleDef
}

// Parse reads every directive line from r. Comments, blank lines, and
// backslash-newline continuations are handled by the shared lexer.
func Parse(r io.Reader) (*File, error) {
	f := &File{Server: map[string]string{}, Global: map[string]string{}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), wire.MaxLine*4)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimRight(sc.Bytes(), "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := parseLine(f, line); err != nil {
			return nil, fmt.Errorf("confload: line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("confload: %w", err)
	}
	return f, nil
}

func parseLine(f *File, line []byte) error {
	lx := wire.New(line)
	tok, err := lx.Next()
	if err != nil {
		return err
	}
	if tok.Kind == wire.TokEOF {
		return nil
	}
	if tok.Kind != wire.TokKeyword {
		return fmt.Errorf("expected directive keyword, got %q", tok.Text)
	}

	switch tok.Text {
	case "SERVER":
		return parseKV(lx, f.Server)
	case "GLOBAL":
		return parseKV(lx, f.Global)
	case "CONSOLE":
		def, err := parseConsole(lx)
		if err != nil {
			return err
		}
		f.Consoles = append(f.Consoles, def)
		return nil
	default:
		return fmt.Errorf("unrecognized directive %q", tok.Text)
	}
}

func parseKV(lx *wire.Lexer, into map[string]string) error {
	for {
		k, err := lx.Next()
		if err != nil {
			return err
		}
		if k.Kind == wire.TokEOF {
			return nil
		}
		eq, err := lx.Next()
		if err != nil || eq.Kind != wire.TokPunct || eq.Text != "=" {
			return fmt.Errorf("expected '=' after key %q", k.Text)
		}
		v, err := lx.Next()
		if err != nil {
			return err
		}
		into[strings.ToUpper(k.Text)] = tokenText(v)
	}
}

func parseConsole(lx *wire.Lexer) (ConsoleDef, error) {
	var def ConsoleDef
	for {
		k, err := lx.Next()
		if err != nil {
			return def, err
		}
		if k.Kind == wire.TokEOF {
			break
		}
		eq, err := lx.Next()
		if err != nil || eq.Kind != wire.TokPunct || eq.Text != "=" {
			return def, fmt.Errorf("expected '=' after key %q", k.Text)
		}
		v, err := lx.Next()
		if err != nil {
			return def, err
		}
		text := tokenText(v)
		switch strings.ToUpper(k.Text) {
		case "NAME":
			def.Name = text
		case "DEV":
			def.Dev = text
		case "LOG":
			def.Log = text
		case "LOGOPTS":
			def.LogOpts = text
		case "SEROPTS":
			def.SerOpts = text
		case "IPMIOPTS":
			def.IPMIOpts = text
		}
	}
	if def.Name == "" || def.Dev == "" {
		return def, fmt.Errorf("CONSOLE directive missing required NAME/DEV")
	}
	return def, nil
}

func tokenText(t wire.Token) string {
	switch t.Kind {
	case wire.TokString, wire.TokIdent, wire.TokKeyword, wire.TokInt:
		return t.Text
	default:
		return ""
	}
}

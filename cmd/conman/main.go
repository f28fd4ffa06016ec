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

// Command conman is the console-manager client (spec.md §4.12, §6): it
// connects to a conmand daemon, issues a QUERY/MONITOR/CONNECT request
// for the named console(s), and for MONITOR/CONNECT copies bytes
// between the terminal and the session until the daemon closes it.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/dun/conman-sub000/internal/daemoncfg"
	"github.com/dun/conman-sub000/internal/netaddr"
	"github.com/dun/conman-sub000/internal/term"
	"github.com/dun/conman-sub000/internal/wire"
)

// Exit codes (spec.md §6 "Client-side CLI... Exit codes").
const (
	exitNormal = 0
	exitUsage  = 1
	exitServer = 2
)

var (
	dest        string
	broadcast   bool
	force       bool
	join        bool
	monitor     bool
	query       bool
	quiet       bool
	escapeChar  string
	logPath     string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "conman [OPTIONS] <console(s)>",
	Short:         "console-manager client",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&dest, "destination", "d", "localhost", "server location, HOST[:PORT]")
	flags.BoolVarP(&broadcast, "broadcast", "b", false, "broadcast (write-only) to multiple consoles")
	flags.BoolVarP(&force, "force", "f", false, "force the connection, evicting existing writers")
	flags.BoolVarP(&join, "join", "j", false, "join an existing connection instead of evicting it")
	flags.BoolVarP(&monitor, "monitor", "m", false, "monitor (read-only) the named console(s)")
	flags.BoolVarP(&query, "query", "q", false, "query the server about the named console(s)")
	flags.BoolVarP(&quiet, "quiet", "Q", false, "suppress informational messages")
	flags.StringVarP(&escapeChar, "escape", "e", "&", "escape character")
	flags.StringVarP(&logPath, "log", "l", "", "log the session locally to FILE")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "be verbose")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ece exitCodeError
		if errors.As(err, &ece) {
			if ece.err != nil {
				fmt.Fprintln(os.Stderr, "conman:", ece.err)
			}
			os.Exit(ece.code)
		}
		fmt.Fprintln(os.Stderr, "conman:", err)
		os.Exit(exitUsage)
	}
}

func run(consoles []string) error {
	if query && monitor {
		return usageErrorf("-q and -m are mutually exclusive")
	}
	if len(consoles) == 0 {
		return usageErrorf("no console specified")
	}
	if len(escapeChar) != 1 {
		return usageErrorf("-e takes exactly one character")
	}

	hp, err := netaddr.SplitHostPort(dest, daemoncfg.DefaultPort)
	if err != nil {
		return usageErrorf("%v", err)
	}

	disableColor := quiet || !term.IsTerminal(int(os.Stdout.Fd()))
	out := term.Stdout(disableColor)

	conn, err := net.Dial("tcp", hp.String())
	if err != nil {
		return fmt.Errorf("connect to %s: %w", hp, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)

	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	if err := sendLine(conn, (&wire.Request{Verb: wire.VerbHello, User: username}).Encode()); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}
	if _, err := readResponse(r); err != nil {
		return err
	}

	req := &wire.Request{Consoles: consoles, Options: map[wire.Option]bool{
		wire.OptBroadcast: broadcast,
		wire.OptForce:     force,
		wire.OptJoin:      join,
		wire.OptQuiet:     quiet,
	}}
	switch {
	case query:
		req.Verb = wire.VerbQuery
	case monitor:
		req.Verb = wire.VerbMonitor
	default:
		req.Verb = wire.VerbConnect
	}
	if err := sendLine(conn, req.Encode()); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	resp, err := readResponse(r)
	if err != nil {
		return err
	}
	if !resp.OK {
		term.StyleError.Fprintf(out, "%s: %s\n", resp.Code.Message(), resp.Message)
		return exitCodeError{code: exitServer}
	}

	if req.Verb == wire.VerbQuery {
		printQueryResult(out, resp)
		// The server follows the OK line with one console name per line
		// and then closes the connection.
		for {
			line, err := r.ReadString('\n')
			if name := trimEOL(line); name != "" {
				term.StyleInfo.Fprintln(out, name)
			}
			if err != nil {
				break
			}
		}
		return nil
	}

	if !quiet {
		term.StyleInfo.Fprintf(out, "Connection to console(s) established.\n")
	}
	return pumpSession(conn, out)
}

func usageErrorf(format string, args ...any) error {
	return exitCodeError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

// exitCodeError carries the process exit code main should use, letting
// run return ordinary errors for unexpected I/O failures (which default
// to exitUsage) while still distinguishing the spec's 3-way exit code
// split for the cases that matter (usage vs. server-reported error).
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "server reported an error"
}

func sendLine(w net.Conn, line string) error {
	_, err := w.Write([]byte(line + "\n"))
	return err
}

func readResponse(r *bufio.Reader) (*wire.Response, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp, perr := wire.ParseResponse([]byte(trimEOL(line)))
	if perr != nil {
		return nil, fmt.Errorf("parse response: %w", perr)
	}
	return resp, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func printQueryResult(out io.Writer, resp *wire.Response) {
	for _, v := range resp.Extra {
		term.StyleInfo.Fprintln(out, v)
	}
}

// pumpSession copies bytes in both directions for a MONITOR/CONNECT
// session: stdin to the socket (raw, byte-at-a-time, so escape-byte
// sequences reach internal/session's processor unmangled) and the
// socket to stdout, optionally tee'd to a local session log (-l FILE).
// It returns nil on a clean server-initiated close (spec.md's "normal
// close" exit code).
func pumpSession(conn net.Conn, out io.Writer) error {
	var logf *os.File
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log %s: %w", logPath, err)
		}
		defer f.Close()
		logf = f
	}

	stdinFD := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFD) {
		if restore, err := term.Raw(stdinFD); err == nil {
			defer restore()
		}
	}

	go func() {
		_, _ = io.Copy(conn, os.Stdin)
	}()

	w := out
	if logf != nil {
		w = io.MultiWriter(out, logf)
	}
	if _, err := io.Copy(w, conn); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

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

// Command conmand is the console-manager daemon (spec.md §4.16): it
// loads the configuration file, daemonizes, then runs internal/daemon
// until signaled to reload or shut down.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dun/conman-sub000/internal/daemon"
	"github.com/dun/conman-sub000/internal/daemoncfg"
	"github.com/dun/conman-sub000/internal/logger"
	"github.com/dun/conman-sub000/internal/pidfile"
)

const version = "1.0.0"

const licenseText = `conmand is distributed under the MIT License.
See the LICENSE file distributed with this source for the full license text.
`

var (
	configPath   string
	portOverride int
	showLicense  bool
	showVersion  bool
	verbose      bool
	truncateLogs bool
	killFlag     bool
	reopenFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "conmand",
	Short:         "console-manager daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoot()
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "/etc/conman.conf", "configuration file path")
	flags.IntVarP(&portOverride, "port", "p", 0, "override the configured listen port")
	flags.BoolVarP(&showLicense, "license", "L", false, "display license information and exit")
	flags.BoolVarP(&showVersion, "version", "V", false, "display version information and exit")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) logging")
	flags.BoolVarP(&truncateLogs, "zero-logs", "z", false, "truncate console logs on startup")
	flags.BoolVarP(&killFlag, "kill", "k", false, "signal SIGTERM to the running daemon and exit")
	flags.BoolVarP(&reopenFlag, "reopen", "r", false, "signal SIGHUP to the running daemon and exit")
}

func main() {
	switch os.Getenv(daemonStageEnv) {
	case "1":
		daemonizeStage1()
		return
	case "2":
		runStage2()
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "conmand:", err)
		os.Exit(1)
	}
}

// runRoot handles the original invocation: -L/-V/-k/-r short-circuit
// before any daemonization, exactly as the original server-conf.c's
// process_server_cmd_line switch does.
func runRoot() error {
	if showLicense {
		fmt.Print(licenseText)
		return nil
	}
	if showVersion {
		fmt.Printf("conmand version %s\n", version)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if killFlag || reopenFlag {
		sig := syscall.SIGTERM
		if reopenFlag {
			sig = syscall.SIGHUP
		}
		pid, err := pidfile.ResolveTargetPID(cfg.PidFile, cfg.LockFile)
		if err != nil {
			return fmt.Errorf("resolve running daemon: %w", err)
		}
		if err := syscall.Kill(pid, sig); err != nil {
			return fmt.Errorf("signal pid %d: %w", pid, err)
		}
		return nil
	}

	daemonize()
	return nil
}

// runStage2 is the final grandchild: it holds the sync pipe, builds and
// runs the daemon, and reports success/failure back to the original
// invocation before continuing to serve (or exiting on failure).
func runStage2() {
	pipeFile := daemonSyncPipe()

	// Stage 2 is reached by re-exec, never through rootCmd.Execute, so
	// the flag-bound package vars are still at their zero values until
	// parsed here against the same argv the original invocation saw.
	if err := rootCmd.ParseFlags(os.Args[1:]); err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: %v\n", err))
	}

	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	log := logger.New(os.Stderr, level)

	// Bridge viper's own internal diagnostics (config-merge/decode
	// chatter it logs through jwalterweatherman, not through any logger
	// conmand passes in) into the daemon's log before loadConfig runs
	// viper, so -v surfaces them instead of losing them to jww's
	// stderr default.
	logger.BridgeViperDiagnostics(log)

	cfg, err := loadConfig()
	if err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: %v\n", err))
	}

	if err := pidfile.Write(cfg.PidFile, os.Getpid()); err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: write pidfile: %v\n", err))
	}
	lockFD, err := pidfile.Lock(cfg.LockFile)
	if err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: %v\n", err))
	}
	_ = lockFD // held for the life of the process; released on exit

	if err := logger.AttachSyslog(log, "conmand"); err != nil {
		log.Warnf("conmand: syslog unavailable: %v", err)
	}

	d, err := daemon.New(cfg, log)
	if err != nil {
		failDaemonize(pipeFile, fmt.Sprintf("conmand: %v\n", err))
	}

	finishDaemonize(pipeFile)

	log.Infof(
		"conmand listening on port %d (loopback-only=%v), %d console(s) configured",
		cfg.Port, cfg.LoopbackOnly, len(cfg.Consoles),
	)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigc {
			switch sig {
			case syscall.SIGHUP:
				log.Info("conmand: reloading on SIGHUP")
				d.Reload()
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info("conmand: shutting down")
				d.Shutdown()
				return
			}
		}
	}()

	d.Run()

	_ = os.Remove(cfg.PidFile)
	os.Exit(0)
}

func loadConfig() (*daemoncfg.Config, error) {
	v := viper.New()
	if portOverride != 0 {
		v.Set("PORT", portOverride)
	}
	if truncateLogs {
		v.Set("LOGTRUNCATE", true)
	}
	return daemoncfg.Load(configPath, v)
}

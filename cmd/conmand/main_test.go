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

package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// resetFlags restores every flag-bound package var to its zero/default
// value so test cases don't leak state into one another (these vars are
// normally set once per process by cobra's flag parser).
func resetFlags() {
	configPath = "/etc/conman.conf"
	portOverride = 0
	showLicense = false
	showVersion = false
	verbose = false
	truncateLogs = false
	killFlag = false
	reopenFlag = false
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	out, _ := io.ReadAll(r)
	r.Close()
	return string(out)
}

func TestRunRootShowLicenseShortCircuitsBeforeLoadingConfig(t *testing.T) {
	resetFlags()
	defer resetFlags()
	showLicense = true
	configPath = "/nonexistent/path/does/not/matter"

	var out string
	var err error
	out = captureStdout(t, func() { err = runRoot() })
	if err != nil {
		t.Fatalf("runRoot() error = %v", err)
	}
	if out != licenseText {
		t.Errorf("stdout = %q, want %q", out, licenseText)
	}
}

func TestRunRootShowVersionShortCircuitsBeforeLoadingConfig(t *testing.T) {
	resetFlags()
	defer resetFlags()
	showVersion = true
	configPath = "/nonexistent/path/does/not/matter"

	var out string
	var err error
	out = captureStdout(t, func() { err = runRoot() })
	if err != nil {
		t.Fatalf("runRoot() error = %v", err)
	}
	want := "conmand version " + version + "\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestRunRootPropagatesConfigLoadError(t *testing.T) {
	resetFlags()
	defer resetFlags()
	configPath = filepath.Join(t.TempDir(), "does-not-exist.conf")

	if err := runRoot(); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadConfigAppliesPortOverride(t *testing.T) {
	resetFlags()
	defer resetFlags()

	path := filepath.Join(t.TempDir(), "conman.conf")
	if err := os.WriteFile(path, []byte("SERVER PORT=7890\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	configPath = path
	portOverride = 9999

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999 (override)", cfg.Port)
	}
}

func TestLoadConfigAppliesLogTruncateFlag(t *testing.T) {
	resetFlags()
	defer resetFlags()

	path := filepath.Join(t.TempDir(), "conman.conf")
	if err := os.WriteFile(path, []byte("SERVER PORT=7890\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	configPath = path
	truncateLogs = true

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.LogTruncate {
		t.Errorf("LogTruncate = false, want true (from -z)")
	}
}

func TestLoadConfigWithoutOverridesUsesFileValues(t *testing.T) {
	resetFlags()
	defer resetFlags()

	path := filepath.Join(t.TempDir(), "conman.conf")
	if err := os.WriteFile(path, []byte("SERVER PORT=7890\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	configPath = path

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 7890 {
		t.Errorf("Port = %d, want 7890", cfg.Port)
	}
}

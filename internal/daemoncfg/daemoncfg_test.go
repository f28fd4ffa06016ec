package daemoncfg

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conmand.conf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaultsAppliedWhenDirectivesAbsent(t *testing.T) {
	path := writeConf(t, "CONSOLE NAME=\"n1\" DEV=\"/dev/ttyS0\"\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.EscapeChar != '&' {
		t.Fatalf("EscapeChar = %q, want '&'", cfg.EscapeChar)
	}
	if len(cfg.Consoles) != 1 {
		t.Fatalf("Consoles = %+v, want 1 entry", cfg.Consoles)
	}
}

func TestLoadServerDirectiveOverridesPort(t *testing.T) {
	path := writeConf(t, "SERVER PORT=8001\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8001 {
		t.Fatalf("Port = %d, want 8001", cfg.Port)
	}
}

func TestLoadInvalidPortRejected(t *testing.T) {
	path := writeConf(t, "SERVER PORT=999999\n")
	if _, err := Load(path, nil); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path/conmand.conf", nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

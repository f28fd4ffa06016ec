package logfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/timer"
)

func TestResolvePathSubstitutesConsoleName(t *testing.T) {
	got := ResolvePath("/var/log/conman", "&.log", '&', "node1")
	want := filepath.Join("/var/log/conman", "node1.log")
	if got != want {
		t.Fatalf("ResolvePath() = %q, want %q", got, want)
	}
}

func TestResolvePathAbsoluteNameIgnoresDir(t *testing.T) {
	got := ResolvePath("/var/log/conman", "/tmp/&.log", '&', "node1")
	if got != "/tmp/node1.log" {
		t.Fatalf("ResolvePath() = %q, want /tmp/node1.log", got)
	}
}

func TestResolvePathDefaultSubstChar(t *testing.T) {
	got := ResolvePath("/logs", "&-console.log", 0, "bmc3")
	want := filepath.Join("/logs", "bmc3-console.log")
	if got != want {
		t.Fatalf("ResolvePath() = %q, want %q", got, want)
	}
}

func TestOpenWritesBannerAndWrite(t *testing.T) {
	dir := t.TempDir()
	obj := object.NewObject("l1", object.KindLogfile, 256)
	w := timer.NewWheel(nil)
	s := New(obj, w, Options{Dir: dir, Name: "&.log", SubstChar: '&'})

	if err := s.Open("node1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "node1.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "Console [node1] log opened at") {
		t.Fatalf("missing open banner, got %q", data)
	}
	if !strings.Contains(string(data), "hello\n") {
		t.Fatalf("missing written content, got %q", data)
	}
}

func TestWriteSanitizesWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	obj := object.NewObject("l1", object.KindLogfile, 256)
	w := timer.NewWheel(nil)
	s := New(obj, w, Options{Dir: dir, Name: "&.log", SubstChar: '&', EnableSanitize: true})

	if err := s.Open("node1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Write([]byte{0x01}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "node1.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "^A") {
		t.Fatalf("expected sanitised control char in output, got %q", data)
	}
}

func TestReopenPreservesPath(t *testing.T) {
	dir := t.TempDir()
	obj := object.NewObject("l1", object.KindLogfile, 256)
	w := timer.NewWheel(nil)
	s := New(obj, w, Options{Dir: dir, Name: "&.log", SubstChar: '&'})

	if err := s.Open("node1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	before := s.Path()

	if err := s.Reopen("node1"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer s.Close()

	if s.Path() != before {
		t.Fatalf("Path() after reopen = %q, want %q", s.Path(), before)
	}
}

func TestTruncateOptionDiscardsExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node1.log")
	if err := os.WriteFile(path, []byte("stale data\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	obj := object.NewObject("l1", object.KindLogfile, 256)
	w := timer.NewWheel(nil)
	s := New(obj, w, Options{Dir: dir, Name: "&.log", SubstChar: '&', Truncate: true})

	if err := s.Open("node1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "stale data") {
		t.Fatalf("expected truncated file, still found stale data: %q", data)
	}
}

func TestStampTimerArmedWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	obj := object.NewObject("l1", object.KindLogfile, 256)
	w := timer.NewWheel(nil)
	s := New(obj, w, Options{Dir: dir, Name: "&.log", SubstChar: '&', StampMinutes: 60})

	if err := s.Open("node1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if w.Len() != 1 {
		t.Fatalf("expected stamp timer armed, got %d", w.Len())
	}
}

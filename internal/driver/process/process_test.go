package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dun/conman-sub000/internal/driver"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/timer"
)

func TestResolveExplicitPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "prog")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	obj := object.NewObject("p1", object.KindProcess, 256)
	w := timer.NewWheel(nil)
	d := New(obj, w, bin, nil)

	got, err := d.Resolve()
	if err != nil || got != bin {
		t.Fatalf("Resolve() = %q, %v, want %q, nil", got, err, bin)
	}
}

func TestResolveSearchesPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "prog")
	if err := os.WriteFile(bin, []byte("x"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	obj := object.NewObject("p1", object.KindProcess, 256)
	w := timer.NewWheel(nil)
	d := New(obj, w, "prog", []string{"/nonexistent", dir})

	got, err := d.Resolve()
	if err != nil || got != bin {
		t.Fatalf("Resolve() = %q, %v, want %q, nil", got, err, bin)
	}
}

func TestResolveRejectsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "prog")
	if err := os.WriteFile(bin, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	obj := object.NewObject("p1", object.KindProcess, 256)
	w := timer.NewWheel(nil)
	d := New(obj, w, bin, nil)

	if _, err := d.Resolve(); err == nil {
		t.Fatalf("expected error for non-executable file")
	}
}

func TestResolveNotFoundSchedulesRetryOnConnect(t *testing.T) {
	obj := object.NewObject("p1", object.KindProcess, 256)
	w := timer.NewWheel(nil)
	d := New(obj, w, "this-binary-does-not-exist-anywhere", []string{"/usr/bin", "/bin"})

	if err := d.Connect(); err == nil {
		t.Fatalf("expected error connecting to an unresolvable command")
	}
	if d.State() != driver.Down {
		t.Fatalf("expected DOWN after failed resolve, got %v", d.State())
	}
	if w.Len() != 1 {
		t.Fatalf("expected reconnect timer armed, got %d pending", w.Len())
	}
}

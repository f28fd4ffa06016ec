package session

import (
	"strings"
	"testing"

	"github.com/dun/conman-sub000/internal/object"
)

func TestReplayFramesWithBeginEndMarkers(t *testing.T) {
	console := object.NewObject("node1", object.KindSerial, 64)
	logfile := object.NewObject("node1.log", object.KindLogfile, 64)
	logfile.Buf.Write([]byte("hello world"), false)

	out := Replay(console, logfile, 5)
	s := string(out)
	if !strings.HasPrefix(s, "Begin log replay of console [node1]") {
		t.Fatalf("missing begin marker: %q", s)
	}
	if !strings.Contains(s, "End log replay of console [node1]") {
		t.Fatalf("missing end marker: %q", s)
	}
	if !strings.Contains(s, "world") {
		t.Fatalf("expected tail bytes in output: %q", s)
	}
}

func TestReplayNilLogfileReturnsNil(t *testing.T) {
	console := object.NewObject("node1", object.KindSerial, 64)
	if out := Replay(console, nil, 10); out != nil {
		t.Fatalf("expected nil, got %q", out)
	}
}

func TestReplayForSessionBroadcastIsNoop(t *testing.T) {
	client := object.NewObject("client1", object.KindClient, 64)
	s := New(client, &fakeLister{}, 0)
	s.targets = nil

	if out := ReplayForSession(s, 100); out != nil {
		t.Fatalf("expected nil for non-single-target session, got %q", out)
	}
}

func TestReplayForSessionFindsLogfileReader(t *testing.T) {
	console := object.NewObject("node1", object.KindSerial, 64)
	logfile := object.NewObject("node1.log", object.KindLogfile, 64)
	logfile.Buf.Write([]byte("banner text"), false)
	object.Link(console, logfile)

	client := object.NewObject("client1", object.KindClient, 64)
	s := New(client, &fakeLister{}, 0)
	s.targets = []*object.Object{console}

	out := ReplayForSession(s, 100)
	if !strings.Contains(string(out), "banner text") {
		t.Fatalf("expected replay to contain logged text, got %q", out)
	}
}

func TestReplayForSessionNoLogfileReturnsNil(t *testing.T) {
	console := object.NewObject("node1", object.KindSerial, 64)
	client := object.NewObject("client1", object.KindClient, 64)
	s := New(client, &fakeLister{}, 0)
	s.targets = []*object.Object{console}

	if out := ReplayForSession(s, 100); out != nil {
		t.Fatalf("expected nil when console has no logfile reader, got %q", out)
	}
}

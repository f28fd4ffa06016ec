package daemon

import (
	"testing"

	"github.com/dun/conman-sub000/internal/daemoncfg"
	"github.com/dun/conman-sub000/internal/object"
	"github.com/dun/conman-sub000/internal/session"
)

func newTestDaemon() *Daemon {
	d := &Daemon{cfg: &daemoncfg.Config{}, clients: map[*object.Object]*clientMember{}}
	d.master = masterList{d: d}
	return d
}

func TestFeedDataHonorsSessionWritable(t *testing.T) {
	d := newTestDaemon()
	consoleObj := object.NewObject("node1", object.KindSerial, 64)
	d.consoles = []*console{{obj: consoleObj}}

	m := newClientMember(d, -1, "peer1")
	m.sess = session.New(m.obj, d.master, 0)
	if _, err := m.sess.FeedLine([]byte("HELLO USER='u'")); err != nil {
		t.Fatalf("HELLO: %v", err)
	}
	if _, err := m.sess.FeedLine([]byte("MONITOR CONSOLE='node1'")); err != nil {
		t.Fatalf("MONITOR: %v", err)
	}

	m.feedData([]byte("x"))
	if consoleObj.Buf.HasPending() {
		t.Fatalf("MONITOR (read-only) session must not forward typed bytes into the console")
	}
}

func TestFeedDataForwardsBytesForConnectSession(t *testing.T) {
	d := newTestDaemon()
	consoleObj := object.NewObject("node1", object.KindSerial, 64)
	d.consoles = []*console{{obj: consoleObj}}

	m := newClientMember(d, -1, "peer1")
	m.sess = session.New(m.obj, d.master, 0)
	if _, err := m.sess.FeedLine([]byte("HELLO USER='u'")); err != nil {
		t.Fatalf("HELLO: %v", err)
	}
	if _, err := m.sess.FeedLine([]byte("CONNECT CONSOLE='node1'")); err != nil {
		t.Fatalf("CONNECT: %v", err)
	}

	m.feedData([]byte("x"))
	if !consoleObj.Buf.HasPending() {
		t.Fatalf("CONNECT (writable) session must forward typed bytes into the console")
	}
}

func TestNewClientMemberGeneratesUniqueSessionIDs(t *testing.T) {
	d := newTestDaemon()
	m1 := newClientMember(d, -1, "peer1")
	m2 := newClientMember(d, -1, "peer2")

	id1, id2 := m1.sessionID(), m2.sessionID()
	if id1 == "" || id2 == "" {
		t.Fatalf("expected non-empty session ids, got %q and %q", id1, id2)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct session ids per client, got the same value twice: %q", id1)
	}
}

package health

import (
	"testing"

	"github.com/dun/conman-sub000/internal/driver"
)

type fakeProvider struct{ st driver.State }

func (f fakeProvider) State() driver.State { return f.st }

func TestObserveRecordsFirstState(t *testing.T) {
	tr := New()
	e := tr.Observe("node1", fakeProvider{st: driver.Down})
	if e.State != driver.Down {
		t.Fatalf("State = %v, want Down", e.State)
	}
	if e.Transitions != 0 {
		t.Fatalf("Transitions = %d, want 0 on first observation", e.Transitions)
	}
}

func TestObserveNoopWhenUnchanged(t *testing.T) {
	tr := New()
	first := tr.Observe("node1", fakeProvider{st: driver.Up})
	second := tr.Observe("node1", fakeProvider{st: driver.Up})
	if second.Since != first.Since {
		t.Fatalf("expected Since to be unchanged when state is stable")
	}
}

func TestObserveCountsTransitions(t *testing.T) {
	tr := New()
	tr.Observe("node1", fakeProvider{st: driver.Down})
	tr.Observe("node1", fakeProvider{st: driver.Pending})
	e := tr.Observe("node1", fakeProvider{st: driver.Up})
	if e.Transitions != 2 {
		t.Fatalf("Transitions = %d, want 2", e.Transitions)
	}
}

func TestGetMissingConsole(t *testing.T) {
	tr := New()
	if _, ok := tr.Get("ghost"); ok {
		t.Fatalf("expected no entry for an unobserved console")
	}
}

func TestSnapshotReturnsAllEntries(t *testing.T) {
	tr := New()
	tr.Observe("a", fakeProvider{st: driver.Up})
	tr.Observe("b", fakeProvider{st: driver.Down})
	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
}

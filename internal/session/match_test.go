package session

import (
	"testing"
	"time"

	"github.com/dun/conman-sub000/internal/errcode"
	"github.com/dun/conman-sub000/internal/object"
)

func mkConsole(name string) *object.Object {
	return object.NewObject(name, object.KindSerial, 64)
}

func TestMatchConsolesLiteralExactName(t *testing.T) {
	a := mkConsole("node1")
	b := mkConsole("node2")
	got, cerr := MatchConsoles([]*object.Object{a, b}, []string{"node1"}, false)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if len(got) != 1 || got[0] != a {
		t.Fatalf("got %v, want [a]", got)
	}
}

func TestMatchConsolesRegexMode(t *testing.T) {
	a := mkConsole("node1")
	b := mkConsole("node2")
	c := mkConsole("other")
	got, cerr := MatchConsoles([]*object.Object{a, b, c}, []string{"node.*"}, true)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
}

func TestMatchConsolesNoMatchIsNoConsoles(t *testing.T) {
	a := mkConsole("node1")
	_, cerr := MatchConsoles([]*object.Object{a}, []string{"nope"}, false)
	if cerr == nil || cerr.Code != errcode.NoConsoles {
		t.Fatalf("want NoConsoles, got %v", cerr)
	}
}

func TestMatchConsolesEmptyPatternsIsNoConsoles(t *testing.T) {
	a := mkConsole("node1")
	_, cerr := MatchConsoles([]*object.Object{a}, nil, false)
	if cerr == nil || cerr.Code != errcode.NoConsoles {
		t.Fatalf("want NoConsoles, got %v", cerr)
	}
}

func TestMatchConsolesBadRegexReported(t *testing.T) {
	a := mkConsole("node1")
	_, cerr := MatchConsoles([]*object.Object{a}, []string{"("}, true)
	if cerr == nil || cerr.Code != errcode.BadRegex {
		t.Fatalf("want BadRegex, got %v", cerr)
	}
}

func TestMatchConsolesIgnoresNonConsoleObjects(t *testing.T) {
	cli := object.NewObject("client1", object.KindClient, 64)
	_, cerr := MatchConsoles([]*object.Object{cli}, []string{"client1"}, false)
	if cerr == nil || cerr.Code != errcode.NoConsoles {
		t.Fatalf("want NoConsoles (clients excluded), got %v", cerr)
	}
}

func TestValidateForConnectMultipleWithoutBroadcastRejected(t *testing.T) {
	a := mkConsole("n1")
	b := mkConsole("n2")
	cerr := ValidateForConnect([]*object.Object{a, b}, false, false, false)
	if cerr == nil || cerr.Code != errcode.TooManyConsoles {
		t.Fatalf("want TooManyConsoles, got %v", cerr)
	}
}

func TestValidateForConnectMultipleWithBroadcastAllowed(t *testing.T) {
	a := mkConsole("n1")
	b := mkConsole("n2")
	cerr := ValidateForConnect([]*object.Object{a, b}, true, false, false)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
}

func TestValidateForConnectBusyWithoutForceOrJoinRejected(t *testing.T) {
	a := mkConsole("n1")
	writer := object.NewObject("cl1", object.KindClient, 64)
	writer.LastRW = time.Now().Add(-2 * time.Minute)
	object.Link(writer, a)

	cerr := ValidateForConnect([]*object.Object{a}, false, false, false)
	if cerr == nil || cerr.Code != errcode.BusyConsoles {
		t.Fatalf("want BusyConsoles, got %v", cerr)
	}
}

func TestValidateForConnectBusyWithForceAllowed(t *testing.T) {
	a := mkConsole("n1")
	writer := object.NewObject("cl1", object.KindClient, 64)
	object.Link(writer, a)

	cerr := ValidateForConnect([]*object.Object{a}, false, true, false)
	if cerr != nil {
		t.Fatalf("unexpected error with FORCE set: %v", cerr)
	}
}

func TestValidateForConnectBusyWithJoinAllowed(t *testing.T) {
	a := mkConsole("n1")
	writer := object.NewObject("cl1", object.KindClient, 64)
	object.Link(writer, a)

	cerr := ValidateForConnect([]*object.Object{a}, false, false, true)
	if cerr != nil {
		t.Fatalf("unexpected error with JOIN set: %v", cerr)
	}
}

func TestValidateForConnectNotBusyPasses(t *testing.T) {
	a := mkConsole("n1")
	cerr := ValidateForConnect([]*object.Object{a}, false, false, false)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
}

package object

import "testing"

func TestLinkUnlinkPairInvariant(t *testing.T) {
	a := NewObject("a", KindTelnet, 64)
	b := NewObject("b", KindClient, 64)

	Link(a, b)
	if !a.hasReader(b) || !b.hasWriter(a) {
		t.Fatalf("expected link to establish both directions")
	}

	UnlinkPair(a, b)
	if len(a.Readers) != 0 || len(b.Writers) != 0 {
		t.Fatalf("expected unlink-pair to be a no-op on both lists, got readers=%v writers=%v", a.Readers, b.Writers)
	}
}

func TestUnlinkRemovesFromAllPeers(t *testing.T) {
	console := NewObject("c", KindTelnet, 64)
	client1 := NewObject("cl1", KindClient, 64)
	client2 := NewObject("cl2", KindClient, 64)

	Link(console, client1)
	Link(console, client2)
	Link(client1, console)

	Unlink(console)

	if len(client1.Writers) != 0 {
		t.Fatalf("expected client1 writers cleared, got %v", client1.Writers)
	}
	if len(client2.Writers) != 0 {
		t.Fatalf("expected client2 writers cleared, got %v", client2.Writers)
	}
	if len(console.Readers) != 0 || len(console.Writers) != 0 {
		t.Fatalf("expected console's own lists cleared")
	}
}

func TestPairInvariantAcrossGraph(t *testing.T) {
	a := NewObject("a", KindTelnet, 64)
	b := NewObject("b", KindClient, 64)
	c := NewObject("c", KindClient, 64)

	Link(a, b)
	Link(a, c)

	for _, pair := range []struct{ x, y *Object }{{a, b}, {a, c}} {
		if !pair.x.hasReader(pair.y) {
			t.Fatalf("expected %s in %s.readers", pair.y.Name, pair.x.Name)
		}
		if !pair.y.hasWriter(pair.x) {
			t.Fatalf("expected %s in %s.writers", pair.x.Name, pair.y.Name)
		}
	}
}

func TestSortConsolesIntegerSuffix(t *testing.T) {
	names := []string{"b10", "b2", "a", "b1"}
	objs := make([]*Object, len(names))
	for i, n := range names {
		objs[i] = NewObject(n, KindTelnet, 8)
	}
	SortConsoles(objs)

	var got []string
	for _, o := range objs {
		got = append(got, o.Name)
	}
	want := []string{"a", "b1", "b2", "b10"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", got, want)
		}
	}
}

func TestSortNamesQuerySample(t *testing.T) {
	names := []string{"a", "b10", "b2", "b1"}
	SortNames(names)
	want := []string{"a", "b1", "b2", "b10"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("SortNames = %v, want %v", names, want)
		}
	}
}

func TestUnlinkAllWritersForceTakeover(t *testing.T) {
	console := NewObject("c", KindTelnet, 64)
	oldWriter := NewObject("old", KindClient, 64)
	Link(oldWriter, console)

	evicted := UnlinkAllWriters(console)
	if len(evicted) != 1 || evicted[0] != oldWriter {
		t.Fatalf("expected old writer evicted, got %v", evicted)
	}
	if len(console.Writers) != 0 {
		t.Fatalf("expected console writers empty after takeover")
	}
}

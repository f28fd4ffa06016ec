package xctx

import "testing"

func TestStoreLoadDelete(t *testing.T) {
	s := New[string]()

	if _, ok := s.Load("missing"); ok {
		t.Fatalf("expected miss on empty store")
	}

	s.Store("a", 42)
	v, ok := s.Load("a")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected to load stored value, got %v, %v", v, ok)
	}

	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}

	s.Delete("a")
	if _, ok := s.Load("a"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestGetTyped(t *testing.T) {
	s := New[int]()
	s.Store(1, "hello")

	v, ok := Get[string](s, 1)
	if !ok || v != "hello" {
		t.Fatalf("expected typed get to succeed, got %q, %v", v, ok)
	}

	if _, ok := Get[int](s, 1); ok {
		t.Fatalf("expected typed get with wrong type to fail")
	}
}

func TestWalk(t *testing.T) {
	s := New[string]()
	s.Store("a", 1)
	s.Store("b", 2)

	sum := 0
	s.Walk(func(key string, value any) bool {
		sum += value.(int)
		return true
	})
	if sum != 3 {
		t.Fatalf("expected walk to visit both entries, got sum=%d", sum)
	}
}

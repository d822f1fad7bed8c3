package storage

import (
	"context"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("test")

	if _, ok := m.GetItem(ctx, "k"); ok {
		t.Fatal("expected a miss on empty store")
	}

	m.SetItem(ctx, "k", "v")
	got, ok := m.GetItem(ctx, "k")
	if !ok || got != "v" {
		t.Fatalf("expected (v, true), got (%q, %v)", got, ok)
	}

	m.SetItem(ctx, "k", "v2")
	got, _ = m.GetItem(ctx, "k")
	if got != "v2" {
		t.Fatalf("expected overwrite, got %q", got)
	}

	m.RemoveItem(ctx, "k")
	if _, ok := m.GetItem(ctx, "k"); ok {
		t.Fatal("expected a miss after remove")
	}
	m.RemoveItem(ctx, "k") // removing an absent key is a no-op
}

func TestMemoryPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	a := NewMemory("a")
	b := NewMemory("b")

	a.SetItem(ctx, "k", "from-a")
	if _, ok := b.GetItem(ctx, "k"); ok {
		t.Fatal("adapters must not share state")
	}

	if a.Len() != 1 || b.Len() != 0 {
		t.Fatalf("unexpected lengths: a=%d b=%d", a.Len(), b.Len())
	}
}

package dedupe

import (
	"context"
	"testing"
)

func TestNilClientDegradesToUnseen(t *testing.T) {
	m := NewMarker(nil, "")
	ctx := context.Background()

	if m.Seen(ctx, "evt-1") {
		t.Fatal("expected unseen with nil client")
	}
	if err := m.MarkProcessed(ctx, "evt-1"); err != nil {
		t.Fatalf("expected nil error with nil client, got %v", err)
	}
	if m.Seen(ctx, "evt-1") {
		t.Fatal("nil client must never report seen")
	}
}

func TestNilMarkerIsSafe(t *testing.T) {
	var m *Marker
	ctx := context.Background()

	if m.Seen(ctx, "evt-1") {
		t.Fatal("expected unseen on nil marker")
	}
	if err := m.MarkProcessed(ctx, "evt-1"); err != nil {
		t.Fatalf("expected nil error on nil marker, got %v", err)
	}
}

func TestPrefixNormalization(t *testing.T) {
	m := NewMarker(nil, "  skillswap:dedupe:  ")
	if got := m.key("abc"); got != "skillswap:dedupe:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	m = NewMarker(nil, "")
	if got := m.key("abc"); got != "skillswap:processed_events:abc" {
		t.Fatalf("unexpected default-prefix key %q", got)
	}
}

package store

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := map[string]float64{"Ana": 5}
	if err := s.Set(ctx, KeyCustomers, in); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out map[string]float64
	if !s.Get(ctx, KeyCustomers, &out) {
		t.Fatal("expected the key to exist")
	}
	if out["Ana"] != 5 {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	s := NewMemoryStore()

	out := map[string]float64{"keep": 1}
	if s.Get(context.Background(), KeyHistory, &out) {
		t.Fatal("missing key must report false")
	}
	if out["keep"] != 1 {
		t.Fatal("a miss must leave dest untouched")
	}
}

func TestMemoryStoreCorruptPayloadDegrades(t *testing.T) {
	s := NewMemoryStore()
	s.seed(KeySettings, []byte("{not json"))

	var out map[string]any
	if s.Get(context.Background(), KeySettings, &out) {
		t.Fatal("a corrupt payload must report false, not fail")
	}
}

func TestMemoryStoreSubscribe(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	fired := 0
	s.Subscribe(ctx, KeySettings, func() { fired++ })

	s.Set(ctx, KeySettings, 1)
	s.Set(ctx, KeyCustomers, 2) // different key, no notification
	s.Set(ctx, KeySettings, 3)

	if fired != 2 {
		t.Fatalf("expected 2 notifications, got %d", fired)
	}
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.Get(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no assignment for unknown experiment")
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, rules.Assignment{ExperimentID: "e1", VariantID: "v2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	variantID, ok, err := s.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || variantID != "v2" {
		t.Errorf("expected v2, got %q (ok=%v)", variantID, ok)
	}
}

func TestMemoryStore_PutIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := rules.Assignment{ExperimentID: "e1", VariantID: "v1"}

	for i := 0; i < 3; i++ {
		if err := s.Put(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	variantID, ok, _ := s.Get(ctx, "e1")
	if !ok || variantID != "v1" {
		t.Errorf("expected v1, got %q", variantID)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, rules.Assignment{ExperimentID: "e1", VariantID: "v1"})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok, _ := s.Get(ctx, "e1")
	if ok {
		t.Error("expected no assignment after Clear")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, rules.Assignment{ExperimentID: "e1", VariantID: "v1"})
		}()
		go func() {
			defer wg.Done()
			_, _, _ = s.Get(ctx, "e1")
		}()
	}
	wg.Wait()
}

func TestNewStore_Memory(t *testing.T) {
	s, err := NewStore(context.Background(), "memory", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", s)
	}
}

func TestNewStore_Unsupported(t *testing.T) {
	_, err := NewStore(context.Background(), "redis", "")
	if err == nil {
		t.Fatal("expected error for unsupported store type")
	}
}

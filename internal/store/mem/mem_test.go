package mem

import (
	"context"
	"testing"

	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
	"github.com/mediacatalog/catalog/internal/store/storetest"
)

func TestMemStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestMemStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	w := &model.Work{ID: "w-1", Description: "original"}
	if err := s.Insert(ctx, w, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Mutating the caller's copy must not affect stored state.
	w.Description = "mutated"
	got, err := s.Works().FindByID(ctx, "w-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Description != "original" {
		t.Fatalf("store shared memory with caller: %q", got.Description)
	}

	// Mutating a read result must not affect stored state either.
	got.Description = "also mutated"
	again, _ := s.Works().FindByID(ctx, "w-1")
	if again.Description != "original" {
		t.Fatalf("read result shared memory with store: %q", again.Description)
	}
}

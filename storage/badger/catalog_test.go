package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
)

func TestCatalogEmpty(t *testing.T) {
	trainingRepo, catalogRepo, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { trainingRepo.Close(); backend.Close() }()

	_, err = catalogRepo.List(context.Background())
	if !errors.Is(err, storage.ErrDataUnavailable) {
		t.Fatalf("Expected ErrDataUnavailable, got %v", err)
	}
}

func TestCatalogReplaceAndList(t *testing.T) {
	trainingRepo, catalogRepo, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { trainingRepo.Close(); backend.Close() }()

	ctx := context.Background()

	first := []core.CatalogEntry{
		{OrderCode: "1SDA072894R1", Description: "Air circuit breaker 4p 800A"},
		{OrderCode: "AF09-30-10", Description: "Contactor 3-pole 9A"},
		{OrderCode: "S201-C16", Description: "Miniature circuit breaker C16"},
	}
	if err := catalogRepo.Replace(ctx, first); err != nil {
		t.Fatalf("Failed to replace catalog: %v", err)
	}

	listed, err := catalogRepo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list catalog: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(listed))
	}
	for i := range first {
		if listed[i] != first[i] {
			t.Fatalf("Position %d: expected %+v, got %+v", i, first[i], listed[i])
		}
	}

	// Replace drops the old catalog entirely
	second := []core.CatalogEntry{
		{OrderCode: "OVR-T2", Description: "Surge arrester type 2"},
	}
	if err := catalogRepo.Replace(ctx, second); err != nil {
		t.Fatalf("Failed to replace catalog: %v", err)
	}

	listed, err = catalogRepo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list catalog: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("Expected 1 entry after replace, got %d", len(listed))
	}
	if listed[0].OrderCode != "OVR-T2" {
		t.Fatalf("Expected 'OVR-T2', got '%s'", listed[0].OrderCode)
	}

	count, err := catalogRepo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count catalog: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected count 1, got %d", count)
	}
}

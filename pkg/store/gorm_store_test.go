package store

import (
	"testing"
	"time"

	"svnglobal/pkg/domain"
)

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`100%_mica\`); got != `100\%\_mica\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestProductModelRoundTrip(t *testing.T) {
	in := domain.Product{
		ID:           "4b8f3c1e-0000-4000-8000-000000000001",
		Name:         "Mica Flakes",
		Description:  strPtr("Natural muscovite flakes"),
		Category:     strPtr("flakes"),
		IsActive:     true,
		Features:     []string{"High dielectric strength", "Heat resistant"},
		Applications: []string{"Paints"},
		CreatedAt:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	out := productFromModel(productToModel(in))
	if out.Name != in.Name || *out.Description != *in.Description || *out.Category != *in.Category || !out.IsActive {
		t.Fatalf("scalar fields mismatch: %+v", out)
	}
	if len(out.Features) != 2 || out.Applications[0] != "Paints" {
		t.Fatalf("list fields mismatch: %+v", out)
	}
}

func TestEncodeListEmptyIsNull(t *testing.T) {
	if raw := encodeList(nil); raw != nil {
		t.Fatalf("expected nil json for empty list, got %s", raw)
	}
	if got := decodeList(nil); got != nil {
		t.Fatalf("expected nil list, got %v", got)
	}
}

package pantry

import (
	"context"
	"testing"

	"pantry-chef/internal/pkg/common"
)

func TestMemoryStoreUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	t.Run("synonym forms collapse to one row", func(t *testing.T) {
		first := &common.PantryItem{UserID: "u1", IngredientName: "Eggs", Quantity: 6}
		if err := s.UpsertItem(ctx, first); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if first.IngredientName != "egg" {
			t.Errorf("expected canonical name, got %q", first.IngredientName)
		}
		if first.ID == "" || first.AddedAt.IsZero() {
			t.Error("expected id and added_at to be assigned")
		}

		second := &common.PantryItem{UserID: "u1", IngredientName: "egg", Quantity: 12}
		if err := s.UpsertItem(ctx, second); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		items, err := s.Items(ctx, "u1")
		if err != nil {
			t.Fatalf("items failed: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 row, got %d", len(items))
		}
		if items[0].Quantity != 12 {
			t.Errorf("expected replaced quantity 12, got %v", items[0].Quantity)
		}
		if items[0].ID != first.ID || !items[0].AddedAt.Equal(first.AddedAt) {
			t.Error("expected id and added_at preserved across replacement")
		}
	})

	t.Run("users are isolated", func(t *testing.T) {
		item := &common.PantryItem{UserID: "u2", IngredientName: "milk"}
		if err := s.UpsertItem(ctx, item); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		items, _ := s.Items(ctx, "u1")
		for _, it := range items {
			if it.IngredientName == "milk" {
				t.Error("row leaked across users")
			}
		}
	})
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	item := &common.PantryItem{UserID: "u1", IngredientName: "basil"}
	if err := s.UpsertItem(ctx, item); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	removed, err := s.DeleteItem(ctx, "u1", item.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed.IngredientName != "basil" {
		t.Errorf("expected the basil row back, got %v", removed)
	}

	items, _ := s.Items(ctx, "u1")
	if len(items) != 0 {
		t.Errorf("expected empty pantry, got %v", items)
	}

	t.Run("unknown id", func(t *testing.T) {
		if _, err := s.DeleteItem(ctx, "u1", "nope"); err == nil {
			t.Error("expected error for unknown item id")
		}
	})
}

func TestMemoryStorePreferences(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.Preferences(ctx, "u1")
	if err != nil || got != nil {
		t.Fatalf("expected nil preferences for a new user, got %v, %v", got, err)
	}

	prefs := &common.UserPreference{
		UserID:              "u1",
		DietaryRestrictions: []string{"vegan"},
		MaxCookTime:         20,
	}
	if err := s.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err = s.Preferences(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxCookTime != 20 || len(got.DietaryRestrictions) != 1 {
		t.Errorf("unexpected preferences: %v", got)
	}

	// The returned record is a copy; mutating it must not touch the store.
	got.MaxCookTime = 99
	again, _ := s.Preferences(ctx, "u1")
	if again.MaxCookTime != 20 {
		t.Error("stored preferences mutated through a returned copy")
	}
}

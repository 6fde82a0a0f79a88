package pantry

import (
	"context"
	"sort"
	"sync"
	"time"

	"pantry-chef/internal/core/detection"
	"pantry-chef/internal/pkg/common"
)

// Store is the narrow data-access interface the engine reads pantry rows
// and preferences through. Implementations persist however they like; the
// engine only depends on these operations.
type Store interface {
	// Preferences returns the user's preference record, or nil when the
	// user has none yet.
	Preferences(ctx context.Context, userID string) (*common.UserPreference, error)
	// SavePreferences replaces the user's whole preference record.
	SavePreferences(ctx context.Context, prefs *common.UserPreference) error
	// Items returns the user's active pantry rows.
	Items(ctx context.Context, userID string) ([]common.PantryItem, error)
	// UpsertItem creates or replaces the row for the item's canonical
	// ingredient name, preserving one active row per (user, name).
	UpsertItem(ctx context.Context, item *common.PantryItem) error
	// DeleteItem removes a row by id and returns the removed item.
	DeleteItem(ctx context.Context, userID, itemID string) (*common.PantryItem, error)
	// Close releases store resources.
	Close() error
}

// prepareItem canonicalizes and timestamps an item before it is written.
func prepareItem(item *common.PantryItem, existing *common.PantryItem, now time.Time) {
	item.IngredientName = detection.Canonicalize(item.IngredientName)
	if existing != nil {
		item.ID = existing.ID
		item.AddedAt = existing.AddedAt
	} else {
		if item.ID == "" {
			item.ID = common.GenerateUUID()
		}
		item.AddedAt = now
	}
	item.UpdatedAt = now
}

// MemoryStore is an in-process Store used in development and tests, and
// as the fallback when redis is disabled.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]common.PantryItem // userID -> canonical name -> item
	prefs map[string]common.UserPreference
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]map[string]common.PantryItem),
		prefs: make(map[string]common.UserPreference),
	}
}

// Preferences returns the user's preferences, nil if unset.
func (s *MemoryStore) Preferences(ctx context.Context, userID string) (*common.UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, ok := s.prefs[userID]
	if !ok {
		return nil, nil
	}
	return &prefs, nil
}

// SavePreferences replaces the user's preference record.
func (s *MemoryStore) SavePreferences(ctx context.Context, prefs *common.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[prefs.UserID] = *prefs
	return nil
}

// Items returns the user's pantry rows sorted by ingredient name.
func (s *MemoryStore) Items(ctx context.Context, userID string) ([]common.PantryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.items[userID]
	items := make([]common.PantryItem, 0, len(rows))
	for _, item := range rows {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].IngredientName < items[j].IngredientName })
	return items, nil
}

// UpsertItem creates or replaces the row for the item's canonical name.
func (s *MemoryStore) UpsertItem(ctx context.Context, item *common.PantryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.items[item.UserID]
	if !ok {
		rows = make(map[string]common.PantryItem)
		s.items[item.UserID] = rows
	}

	name := detection.Canonicalize(item.IngredientName)
	var existing *common.PantryItem
	if prev, ok := rows[name]; ok {
		existing = &prev
	}
	prepareItem(item, existing, time.Now())
	rows[item.IngredientName] = *item
	return nil
}

// DeleteItem removes a row by id and returns it.
func (s *MemoryStore) DeleteItem(ctx context.Context, userID, itemID string) (*common.PantryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, item := range s.items[userID] {
		if item.ID == itemID {
			delete(s.items[userID], name)
			return &item, nil
		}
	}
	return nil, common.ErrNotFound
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

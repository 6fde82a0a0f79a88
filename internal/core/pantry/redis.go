package pantry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pantry-chef/internal/core/detection"
	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// RedisStore persists pantry rows and preferences in redis. Items live in
// one hash per user keyed by canonical ingredient name, which gives the
// one-active-row-per-(user, name) uniqueness for free; preferences are a
// single JSON string per user.
type RedisStore struct {
	client *redis.Client
}

func itemsKey(userID string) string {
	return fmt.Sprintf("pantry:items:%s", userID)
}

func prefsKey(userID string) string {
	return fmt.Sprintf("pantry:prefs:%s", userID)
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Preferences returns the user's preferences, nil if unset.
func (s *RedisStore) Preferences(ctx context.Context, userID string) (*common.UserPreference, error) {
	data, err := s.client.Get(ctx, prefsKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var prefs common.UserPreference
	if err := common.ParseJSONBytes(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &prefs, nil
}

// SavePreferences replaces the user's preference record.
func (s *RedisStore) SavePreferences(ctx context.Context, prefs *common.UserPreference) error {
	data, err := common.ToJSON(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := s.client.Set(ctx, prefsKey(prefs.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

// Items returns the user's pantry rows sorted by ingredient name.
func (s *RedisStore) Items(ctx context.Context, userID string) ([]common.PantryItem, error) {
	rows, err := s.client.HGetAll(ctx, itemsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	items := make([]common.PantryItem, 0, len(rows))
	for _, raw := range rows {
		var item common.PantryItem
		if err := common.ParseJSON(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pantry item: %w", err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].IngredientName < items[j].IngredientName })
	return items, nil
}

// UpsertItem creates or replaces the row for the item's canonical name.
func (s *RedisStore) UpsertItem(ctx context.Context, item *common.PantryItem) error {
	name := detection.Canonicalize(item.IngredientName)

	var existing *common.PantryItem
	raw, err := s.client.HGet(ctx, itemsKey(item.UserID), name).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	if err == nil {
		var prev common.PantryItem
		if err := common.ParseJSON(raw, &prev); err == nil {
			existing = &prev
		}
	}

	prepareItem(item, existing, time.Now())

	data, err := common.ToJSON(item)
	if err != nil {
		return fmt.Errorf("failed to marshal pantry item: %w", err)
	}
	if err := s.client.HSet(ctx, itemsKey(item.UserID), item.IngredientName, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteItem removes a row by id and returns it.
func (s *RedisStore) DeleteItem(ctx context.Context, userID, itemID string) (*common.PantryItem, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == itemID {
			if err := s.client.HDel(ctx, itemsKey(userID), item.IngredientName).Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
			}
			removed := item
			return &removed, nil
		}
	}
	return nil, common.ErrNotFound
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pantry-chef/internal/core/filter"
	"pantry-chef/internal/core/pantry"
	"pantry-chef/internal/core/querycache"
	"pantry-chef/internal/core/scorer"
	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"

	"go.uber.org/zap"
)

// Source fetches recipe candidates for a rendered filter query.
type Source interface {
	Search(ctx context.Context, filterQuery string) ([]common.RecipeCandidate, error)
}

// Result is what the caller gets back: ordered scored recipes plus flags
// describing how the candidates were obtained. Stale marks an
// expired-but-served cache entry; Degraded marks an empty result returned
// because the recipe source was unreachable and no fallback existed.
type Result struct {
	Recipes        []common.ScoredRecipe `json:"recipes"`
	FiltersApplied string                `json:"filters_applied"`
	Stale          bool                  `json:"stale"`
	Degraded       bool                  `json:"degraded"`
}

// Service wires the engine together: store read, filter build, cached
// fetch, local gap re-filter, scoring. Pantry mutations route through it
// so cache invalidation happens synchronously with each change.
type Service struct {
	store      pantry.Store
	builder    *filter.Builder
	cache      *querycache.Manager
	source     Source
	scorer     *scorer.Scorer
	maxMissing int
}

// NewService creates the recommendation service.
func NewService(cfg *config.Config, store pantry.Store, cache *querycache.Manager, source Source, sc *scorer.Scorer) *Service {
	return &Service{
		store:      store,
		builder:    filter.NewBuilder(),
		cache:      cache,
		source:     source,
		scorer:     sc,
		maxMissing: cfg.RecipeSource.MaxMissing,
	}
}

// Recommend produces the ordered recommendation list for a user. Pantry
// state and preferences are read fresh from the store on every call. A
// recipe source failure never becomes a hard error: a stale cache entry is
// served when one exists, otherwise an empty degraded result.
func (s *Service) Recommend(ctx context.Context, userID string) (*Result, error) {
	start := time.Now()

	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pantry: %w", err)
	}

	derived := filter.Derived{MaxMissing: s.maxMissing}
	if prefs != nil {
		derived.MaxCookTime = prefs.MaxCookTime
	}
	query := s.builder.Build(prefs, derived)
	filters := query.Render()

	ingredients := make([]string, 0, len(items))
	for _, item := range items {
		ingredients = append(ingredients, item.IngredientName)
	}

	resultSet, stale, err := s.cache.GetOrFetch(ctx, filters, ingredients, func(fetchCtx context.Context) (*common.RecipeResultSet, error) {
		recipes, err := s.source.Search(fetchCtx, filters)
		if err != nil {
			return nil, err
		}
		return &common.RecipeResultSet{
			Recipes:        recipes,
			FiltersApplied: filters,
		}, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrRecipeSourceUnavailable) {
			common.LogWarn("recipe source unavailable, returning degraded result",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			return &Result{Recipes: []common.ScoredRecipe{}, FiltersApplied: filters, Degraded: true}, nil
		}
		return nil, err
	}

	// The external source is not trusted to have enforced the gap bound;
	// re-filter candidates locally against the actual per-recipe missing
	// count before scoring.
	scored := s.scorer.Score(resultSet.Recipes, items, prefs)
	filtered := scored[:0]
	for _, sr := range scored {
		if len(sr.MissingIngredients) <= s.maxMissing {
			filtered = append(filtered, sr)
		}
	}
	if filtered == nil {
		filtered = []common.ScoredRecipe{}
	}

	common.LogInfo("recommendation computed",
		zap.String("user_id", userID),
		zap.Int("candidates", len(resultSet.Recipes)),
		zap.Int("ranked", len(filtered)),
		zap.Bool("stale", stale),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		Recipes:        filtered,
		FiltersApplied: filters,
		Stale:          stale,
	}, nil
}

// UpsertPantryItem writes a pantry row and synchronously invalidates every
// cache entry referencing the ingredient. There is no window where a stale
// entry survives a known pantry change.
func (s *Service) UpsertPantryItem(ctx context.Context, item *common.PantryItem) error {
	if err := s.store.UpsertItem(ctx, item); err != nil {
		return err
	}
	s.cache.Invalidate(item.IngredientName)
	return nil
}

// DeletePantryItem removes a pantry row and invalidates the cache for its
// ingredient.
func (s *Service) DeletePantryItem(ctx context.Context, userID, itemID string) (*common.PantryItem, error) {
	item, err := s.store.DeleteItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(item.IngredientName)
	return item, nil
}

// PantryItems lists the user's active pantry rows.
func (s *Service) PantryItems(ctx context.Context, userID string) ([]common.PantryItem, error) {
	return s.store.Items(ctx, userID)
}

// Preferences returns the user's preferences, nil if unset.
func (s *Service) Preferences(ctx context.Context, userID string) (*common.UserPreference, error) {
	return s.store.Preferences(ctx, userID)
}

// SavePreferences replaces the user's preference record.
func (s *Service) SavePreferences(ctx context.Context, prefs *common.UserPreference) error {
	return s.store.SavePreferences(ctx, prefs)
}

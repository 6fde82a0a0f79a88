package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"pantry-chef/internal/core/detection"
	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"
)

// Scorer ranks recipe candidates against a pantry and user preferences.
// Stateless apart from its validated configuration: scoring is a pure
// function over immutable inputs.
type Scorer struct {
	weights        config.ScorerConfig
	ratingScale    float64
	urgencyHorizon time.Duration

	// Injectable clock for urgency tests.
	now func() time.Time
}

// New creates a scorer from validated configuration. Weight validation is
// repeated here so a scorer constructed outside LoadConfig still rejects a
// bad weight set instead of silently renormalizing it.
func New(cfg *config.Config) (*Scorer, error) {
	weights := []float64{
		cfg.Scorer.AvailabilityWeight,
		cfg.Scorer.UrgencyWeight,
		cfg.Scorer.RatingWeight,
		cfg.Scorer.AffinityWeight,
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %v", common.ErrInvalidScoringWeights, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return nil, fmt.Errorf("%w: sum is %v", common.ErrInvalidScoringWeights, sum)
	}

	ratingScale := cfg.RecipeSource.RatingScale
	if ratingScale <= 0 {
		ratingScale = 5.0
	}
	horizon := cfg.Scorer.UrgencyHorizon
	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}

	return &Scorer{
		weights:        cfg.Scorer,
		ratingScale:    ratingScale,
		urgencyHorizon: horizon,
		now:            time.Now,
	}, nil
}

// Score ranks candidates by descending composite score. Candidates with no
// required ingredients are invalid and excluded entirely; an input where
// every candidate is excluded yields an empty list, not an error. Ties
// break on higher rating, then fewer missing ingredients, then candidate
// id, so the ordering is a deterministic total order.
func (s *Scorer) Score(candidates []common.RecipeCandidate, pantry []common.PantryItem, prefs *common.UserPreference) []common.ScoredRecipe {
	pantryByName := make(map[string]common.PantryItem, len(pantry))
	for _, item := range pantry {
		pantryByName[detection.Canonicalize(item.IngredientName)] = item
	}

	prefTags := preferenceTags(prefs)
	now := s.now()

	scored := make([]common.ScoredRecipe, 0, len(candidates))
	for _, cand := range candidates {
		required := requiredSet(cand.RequiredIngredients)
		if len(required) == 0 {
			continue
		}

		var missing []string
		var matched []common.PantryItem
		for _, name := range required {
			if item, ok := pantryByName[name]; ok {
				matched = append(matched, item)
			} else {
				missing = append(missing, name)
			}
		}

		breakdown := common.ScoreBreakdown{
			Availability: 1.0 - float64(len(missing))/float64(len(required)),
			Urgency:      s.urgency(matched, now),
			Rating:       clamp01(cand.Rating / s.ratingScale),
			Affinity:     affinity(cand.Tags, prefTags),
		}

		composite := s.weights.AvailabilityWeight*breakdown.Availability +
			s.weights.UrgencyWeight*breakdown.Urgency +
			s.weights.RatingWeight*breakdown.Rating +
			s.weights.AffinityWeight*breakdown.Affinity

		scored = append(scored, common.ScoredRecipe{
			Recipe:             cand,
			CompositeScore:     composite,
			MissingIngredients: missing,
			Breakdown:          breakdown,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].CompositeScore != scored[j].CompositeScore {
			return scored[i].CompositeScore > scored[j].CompositeScore
		}
		if scored[i].Recipe.Rating != scored[j].Recipe.Rating {
			return scored[i].Recipe.Rating > scored[j].Recipe.Rating
		}
		if len(scored[i].MissingIngredients) != len(scored[j].MissingIngredients) {
			return len(scored[i].MissingIngredients) < len(scored[j].MissingIngredients)
		}
		return scored[i].Recipe.ID < scored[j].Recipe.ID
	})

	return scored
}

// urgency boosts recipes whose matched pantry ingredients expire soon.
// Zero when no matched ingredient carries an expiration date; 1.0 when one
// has already reached it. In between, the boost scales linearly with how
// close the soonest expiry sits inside the horizon.
func (s *Scorer) urgency(matched []common.PantryItem, now time.Time) float64 {
	var soonest *time.Time
	for _, item := range matched {
		if item.ExpirationDate == nil {
			continue
		}
		if soonest == nil || item.ExpirationDate.Before(*soonest) {
			soonest = item.ExpirationDate
		}
	}
	if soonest == nil {
		return 0
	}
	remaining := soonest.Sub(now)
	if remaining <= 0 {
		return 1.0
	}
	if remaining >= s.urgencyHorizon {
		return 0
	}
	return 1.0 - float64(remaining)/float64(s.urgencyHorizon)
}

// requiredSet canonicalizes and deduplicates a candidate's required
// ingredient names.
func requiredSet(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		canonical := detection.Canonicalize(name)
		if canonical == "" {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// preferenceTags collects the user's preferred cuisines and dietary
// restrictions as a lower-cased tag set.
func preferenceTags(prefs *common.UserPreference) map[string]struct{} {
	tags := make(map[string]struct{})
	if prefs == nil {
		return tags
	}
	for _, cuisine := range prefs.PreferredCuisines {
		if t := strings.ToLower(strings.TrimSpace(cuisine)); t != "" {
			tags[t] = struct{}{}
		}
	}
	for _, restriction := range prefs.DietaryRestrictions {
		if t := strings.ToLower(strings.TrimSpace(restriction)); t != "" {
			tags[t] = struct{}{}
		}
	}
	return tags
}

// affinity is the fraction of the candidate's tags intersecting the
// user's preference tags.
func affinity(tags []string, prefTags map[string]struct{}) float64 {
	if len(tags) == 0 || len(prefTags) == 0 {
		return 0
	}
	matched := 0
	for _, tag := range tags {
		if _, ok := prefTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tags))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package common

import (
	"time"
)

// PantryItem is one active ingredient row owned by a user. Uniqueness is
// one row per (user, canonical ingredient name); quantity edits mutate the
// row, consumption or expiry-purge deletes it.
type PantryItem struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	IngredientName  string     `json:"ingredient_name"`
	Category        string     `json:"category,omitempty"`
	Quantity        float64    `json:"quantity,omitempty"`
	Unit            string     `json:"unit,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	ConfidenceScore float64    `json:"confidence_score"`
	AddedAt         time.Time  `json:"added_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserPreference holds one user's dining preferences. Updates replace the
// whole record, never patch individual fields.
type UserPreference struct {
	UserID              string   `json:"user_id"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	PreferredCuisines   []string `json:"preferred_cuisines"`
	MaxCookTime         int      `json:"max_cook_time"`
	SkillLevel          string   `json:"skill_level,omitempty"`
	Allergens           []string `json:"allergens"`
}

// RecipeCandidate is one recipe record as returned by the external recipe
// source. Read-only to the engine; only the fields below are relied on.
type RecipeCandidate struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title,omitempty"`
	RequiredIngredients []string `json:"required_ingredients"`
	Rating              float64  `json:"rating"`
	Tags                []string `json:"tags"`
}

// RecipeResultSet is the value cached per filter query: the candidates the
// external source returned plus the filter string that produced them.
type RecipeResultSet struct {
	Recipes        []RecipeCandidate `json:"recipes"`
	FiltersApplied string            `json:"filters_applied"`
	CachedAt       time.Time         `json:"cached_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// ScoreBreakdown carries the per-factor components of a composite score,
// each normalized to [0,1].
type ScoreBreakdown struct {
	Availability float64 `json:"availability"`
	Urgency      float64 `json:"urgency"`
	Rating       float64 `json:"rating"`
	Affinity     float64 `json:"affinity"`
}

// ScoredRecipe is a candidate plus its composite score and breakdown.
// Computed per request, never persisted by the engine.
type ScoredRecipe struct {
	Recipe             RecipeCandidate `json:"recipe"`
	CompositeScore     float64         `json:"composite_score"`
	MissingIngredients []string        `json:"missing_ingredients"`
	Breakdown          ScoreBreakdown  `json:"breakdown"`
}

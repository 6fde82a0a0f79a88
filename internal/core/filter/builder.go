package filter

import (
	"sort"

	"pantry-chef/internal/pkg/common"

	"go.uber.org/zap"
)

// Derived carries the per-request values computed outside the preference
// record: the requested cook time and the least restrictive ingredient gap
// the user will accept. The gap token is a global worst-case bound; exact
// per-recipe gap enforcement happens again at scoring time.
type Derived struct {
	MaxCookTime int
	MaxMissing  int
}

// Builder maps pantry state and user preferences into a canonical,
// ordered filter query. Stateless; the same inputs always yield the same
// byte sequence, across calls and across process restarts, because the
// rendered string is the primary component of the cache key.
type Builder struct{}

// NewBuilder creates a filter query builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build assembles the token sequence in fixed category order:
// time, ingredient-gap, diet, cuisine, quality.
func (b *Builder) Build(prefs *common.UserPreference, derived Derived) Query {
	var q Query

	// Time budget: smallest bucket that still fits the requested time.
	if derived.MaxCookTime > 0 {
		for _, bucket := range timeBuckets {
			if bucket.minutes >= derived.MaxCookTime {
				q = append(q, bucket.token)
				break
			}
		}
	}

	// Ingredient gap: worst-case bound the user accepts.
	switch {
	case derived.MaxMissing <= 0:
		q = append(q, TokenGapNoneMissing)
	case derived.MaxMissing == 1:
		q = append(q, TokenGapOneMissing)
	default:
		q = append(q, TokenGapTwoOrFewerMissing)
	}

	if prefs != nil {
		// Diet: restrictions arrive as a set, so sort the mapped tokens for
		// a stable byte sequence. Unknown restrictions are dropped.
		var diet []Token
		for _, restriction := range prefs.DietaryRestrictions {
			token, ok := dietTokens[sanitize(restriction)]
			if !ok {
				common.LogWarn("unknown dietary restriction dropped",
					zap.String("restriction", restriction),
				)
				continue
			}
			diet = append(diet, token)
		}
		// Allergens participate in the query (and therefore the cache key)
		// so two users differing only in allergens never share results.
		for _, allergen := range prefs.Allergens {
			if name := sanitize(allergen); name != "" {
				diet = append(diet, Token(avoidPrefix+name))
			}
		}
		sort.Slice(diet, func(i, j int) bool { return diet[i] < diet[j] })
		q = append(q, dedupe(diet)...)

		// Cuisine: first three preferred cuisines, rank order preserved.
		count := 0
		for _, cuisine := range prefs.PreferredCuisines {
			if count == 3 {
				break
			}
			if name := sanitize(cuisine); name != "" {
				q = append(q, Token(cuisinePrefix+name))
				count++
			}
		}
	}

	// Quality floor is always applied.
	q = append(q, TokenQualityFloor)

	return q
}

// dedupe removes adjacent duplicates from a sorted token slice.
func dedupe(tokens []Token) []Token {
	out := tokens[:0]
	for i, t := range tokens {
		if i == 0 || tokens[i-1] != t {
			out = append(out, t)
		}
	}
	return out
}

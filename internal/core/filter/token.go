package filter

import (
	"fmt"
	"strings"
)

// Token is one atomic filter tag from the fixed vocabulary understood by
// the external recipe source. Tokens are immutable constants; dynamic
// tokens (cuisine, allergen) are built from the fixed prefixes below.
type Token string

// Time-budget tokens, one per configured bucket.
const (
	TokenReadyUnder5  Token = "schema_ready_in_under_5mins"
	TokenReadyUnder15 Token = "schema_ready_in_under_15mins"
	TokenReadyUnder30 Token = "schema_ready_in_under_30mins"
	TokenReadyUnder60 Token = "schema_ready_in_under_60mins"
)

// Ingredient-gap tokens, bucketed by how many required ingredients the
// user accepts missing.
const (
	TokenGapNoneMissing       Token = "gap_none_missing"
	TokenGapOneMissing        Token = "gap_one_missing"
	TokenGapTwoOrFewerMissing Token = "gap_two_or_fewer_missing"
)

// Dynamic token prefixes.
const (
	dietPrefix    = "diet_"
	cuisinePrefix = "ctag_"
	avoidPrefix   = "avoid_"
)

// TokenQualityFloor is the fixed minimum-rating floor, always appended
// last.
const TokenQualityFloor Token = "quality_rating_4_plus"

// timeBuckets are the configured cook-time buckets in ascending minutes.
var timeBuckets = []struct {
	minutes int
	token   Token
}{
	{5, TokenReadyUnder5},
	{15, TokenReadyUnder15},
	{30, TokenReadyUnder30},
	{60, TokenReadyUnder60},
}

// dietTokens maps known dietary restrictions to their filter tokens.
// Restrictions outside this table are dropped (logged, not fatal).
var dietTokens = map[string]Token{
	"vegetarian":  "diet_vegetarian",
	"vegan":       "diet_vegan",
	"pescatarian": "diet_pescatarian",
	"gluten_free": "diet_gluten_free",
	"gluten-free": "diet_gluten_free",
	"dairy_free":  "diet_dairy_free",
	"dairy-free":  "diet_dairy_free",
	"nut_free":    "diet_nut_free",
	"nut-free":    "diet_nut_free",
	"halal":       "diet_halal",
	"kosher":      "diet_kosher",
	"keto":        "diet_keto",
	"paleo":       "diet_paleo",
	"low_carb":    "diet_low_carb",
	"low-carb":    "diet_low_carb",
}

const (
	// Separator joins rendered tokens; Escape guards separator characters
	// occurring inside a token.
	Separator = "|"
	Escape    = "\\"
)

// Query is an ordered token sequence with a defined category order:
// time, ingredient-gap, diet, cuisine, quality. Two logically equal
// preference/pantry states always produce byte-identical sequences.
type Query []Token

// Render flattens the query into a single delimited string for
// transmission to the external recipe source. Parse inverts it exactly.
func (q Query) Render() string {
	parts := make([]string, len(q))
	for i, t := range q {
		s := strings.ReplaceAll(string(t), Escape, Escape+Escape)
		s = strings.ReplaceAll(s, Separator, Escape+Separator)
		parts[i] = s
	}
	return strings.Join(parts, Separator)
}

// Parse splits a rendered filter string back into its token sequence,
// honoring escapes. Parse(q.Render()) always round-trips to q.
func Parse(s string) (Query, error) {
	if s == "" {
		return Query{}, nil
	}
	var q Query
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case string(r) == Escape:
			escaped = true
		case string(r) == Separator:
			q = append(q, Token(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("filter string ends with dangling escape")
	}
	q = append(q, Token(cur.String()))
	return q, nil
}

// sanitize turns free-form preference text into a token fragment:
// lower-cased, spaces collapsed to underscores.
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

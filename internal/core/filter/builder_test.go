package filter

import (
	"reflect"
	"strings"
	"testing"

	"pantry-chef/internal/pkg/common"
)

func TestBuildCategoryOrder(t *testing.T) {
	b := NewBuilder()
	prefs := &common.UserPreference{
		DietaryRestrictions: []string{"vegetarian"},
		PreferredCuisines:   []string{"italian", "asian"},
		MaxCookTime:         15,
	}

	q := b.Build(prefs, Derived{MaxCookTime: 15, MaxMissing: 2})
	want := Query{
		TokenReadyUnder15,
		TokenGapTwoOrFewerMissing,
		"diet_vegetarian",
		"ctag_italian",
		"ctag_asian",
		TokenQualityFloor,
	}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("unexpected query:\n got %v\nwant %v", q, want)
	}
}

func TestBuildDeterminism(t *testing.T) {
	b := NewBuilder()
	prefs := &common.UserPreference{
		DietaryRestrictions: []string{"vegan", "gluten_free"},
		PreferredCuisines:   []string{"Thai", "Mexican", "Indian", "French"},
		Allergens:           []string{"peanut", "shellfish"},
		MaxCookTime:         25,
	}
	derived := Derived{MaxCookTime: 25, MaxMissing: 1}

	first := b.Build(prefs, derived).Render()
	for i := 0; i < 50; i++ {
		if got := b.Build(prefs, derived).Render(); got != first {
			t.Fatalf("render differs between calls:\n%q\nvs\n%q", first, got)
		}
	}

	// A logically equal state with restrictions listed in another order
	// must produce the same bytes.
	reordered := &common.UserPreference{
		DietaryRestrictions: []string{"gluten_free", "vegan"},
		PreferredCuisines:   []string{"Thai", "Mexican", "Indian", "French"},
		Allergens:           []string{"shellfish", "peanut"},
		MaxCookTime:         25,
	}
	if got := b.Build(reordered, derived).Render(); got != first {
		t.Errorf("render depends on restriction order:\n%q\nvs\n%q", first, got)
	}
}

func TestBuildTimeBuckets(t *testing.T) {
	b := NewBuilder()
	cases := []struct {
		minutes int
		want    Token
	}{
		{5, TokenReadyUnder5},
		{6, TokenReadyUnder15},
		{15, TokenReadyUnder15},
		{16, TokenReadyUnder30},
		{45, TokenReadyUnder60},
	}
	for _, tc := range cases {
		q := b.Build(nil, Derived{MaxCookTime: tc.minutes, MaxMissing: 2})
		if q[0] != tc.want {
			t.Errorf("maxCookTime %d: got %q, want %q", tc.minutes, q[0], tc.want)
		}
	}

	t.Run("no bucket fits", func(t *testing.T) {
		q := b.Build(nil, Derived{MaxCookTime: 90, MaxMissing: 2})
		for _, tok := range q {
			if strings.HasPrefix(string(tok), "schema_ready_") {
				t.Errorf("expected no time token for 90 minutes, got %q", tok)
			}
		}
	})

	t.Run("no cook time requested", func(t *testing.T) {
		q := b.Build(nil, Derived{MaxMissing: 2})
		if q[0] != TokenGapTwoOrFewerMissing {
			t.Errorf("expected gap token first without a time budget, got %q", q[0])
		}
	})
}

func TestBuildGapBuckets(t *testing.T) {
	b := NewBuilder()
	cases := []struct {
		maxMissing int
		want       Token
	}{
		{0, TokenGapNoneMissing},
		{1, TokenGapOneMissing},
		{2, TokenGapTwoOrFewerMissing},
		{5, TokenGapTwoOrFewerMissing},
	}
	for _, tc := range cases {
		q := b.Build(nil, Derived{MaxMissing: tc.maxMissing})
		if q[0] != tc.want {
			t.Errorf("maxMissing %d: got %q, want %q", tc.maxMissing, q[0], tc.want)
		}
	}
}

func TestBuildDropsUnknownRestrictions(t *testing.T) {
	b := NewBuilder()
	prefs := &common.UserPreference{
		DietaryRestrictions: []string{"vegetarian", "moon_diet"},
	}
	q := b.Build(prefs, Derived{MaxMissing: 2})
	for _, tok := range q {
		if strings.Contains(string(tok), "moon") {
			t.Errorf("unknown restriction leaked into query: %q", tok)
		}
	}
	found := false
	for _, tok := range q {
		if tok == "diet_vegetarian" {
			found = true
		}
	}
	if !found {
		t.Error("known restriction missing from query")
	}
}

func TestBuildCuisineLimit(t *testing.T) {
	b := NewBuilder()
	prefs := &common.UserPreference{
		PreferredCuisines: []string{"Italian", "Asian", "Mexican", "French", "Thai"},
	}
	q := b.Build(prefs, Derived{MaxMissing: 2})

	var cuisines []Token
	for _, tok := range q {
		if strings.HasPrefix(string(tok), "ctag_") {
			cuisines = append(cuisines, tok)
		}
	}
	want := []Token{"ctag_italian", "ctag_asian", "ctag_mexican"}
	if !reflect.DeepEqual(cuisines, want) {
		t.Errorf("expected first three cuisines in rank order, got %v", cuisines)
	}
}

func TestBuildAllergenTokens(t *testing.T) {
	b := NewBuilder()
	prefs := &common.UserPreference{
		Allergens: []string{"Peanut", "tree nut"},
	}
	q := b.Build(prefs, Derived{MaxMissing: 2}).Render()
	if !strings.Contains(q, "avoid_peanut") || !strings.Contains(q, "avoid_tree_nut") {
		t.Errorf("allergen tokens missing from query: %q", q)
	}
}

func TestQualityTokenAlwaysLast(t *testing.T) {
	b := NewBuilder()
	q := b.Build(nil, Derived{MaxMissing: 0})
	if q[len(q)-1] != TokenQualityFloor {
		t.Errorf("expected quality token last, got %q", q[len(q)-1])
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	t.Run("vocabulary tokens", func(t *testing.T) {
		q := Query{TokenReadyUnder15, TokenGapOneMissing, "diet_vegan", "ctag_thai", TokenQualityFloor}
		parsed, err := Parse(q.Render())
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if !reflect.DeepEqual(parsed, q) {
			t.Errorf("round trip mismatch:\n got %v\nwant %v", parsed, q)
		}
	})

	t.Run("tokens containing separator and escape characters", func(t *testing.T) {
		q := Query{`a|b`, `c\d`, `\|`, "plain"}
		parsed, err := Parse(q.Render())
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if !reflect.DeepEqual(parsed, q) {
			t.Errorf("round trip mismatch:\n got %v\nwant %v", parsed, q)
		}
	})

	t.Run("dangling escape is rejected", func(t *testing.T) {
		if _, err := Parse(`abc\`); err == nil {
			t.Error("expected error for dangling escape")
		}
	})

	t.Run("empty string", func(t *testing.T) {
		parsed, err := Parse("")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if len(parsed) != 0 {
			t.Errorf("expected empty query, got %v", parsed)
		}
	})
}

func TestEndToEndScenario(t *testing.T) {
	// Preferences {vegetarian, [italian, asian], 15 minutes} with a pantry
	// of tomato and basil must render these tokens in category order.
	b := NewBuilder()
	prefs := &common.UserPreference{
		DietaryRestrictions: []string{"vegetarian"},
		PreferredCuisines:   []string{"italian", "asian"},
		MaxCookTime:         15,
	}
	rendered := b.Build(prefs, Derived{MaxCookTime: prefs.MaxCookTime, MaxMissing: 2}).Render()

	wantOrder := []string{
		"schema_ready_in_under_15mins",
		"diet_vegetarian",
		"ctag_italian",
		"ctag_asian",
		string(TokenQualityFloor),
	}
	last := -1
	for _, tok := range wantOrder {
		idx := strings.Index(rendered, tok)
		if idx < 0 {
			t.Fatalf("token %q missing from %q", tok, rendered)
		}
		if idx < last {
			t.Errorf("token %q out of category order in %q", tok, rendered)
		}
		last = idx
	}
}

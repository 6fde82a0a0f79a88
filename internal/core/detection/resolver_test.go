package detection

import (
	"math"
	"reflect"
	"testing"
)

func TestIoU(t *testing.T) {
	t.Run("identical boxes", func(t *testing.T) {
		b := BoundingBox{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}
		if got := b.IoU(b); math.Abs(got-1.0) > 1e-9 {
			t.Errorf("expected IoU 1.0, got %v", got)
		}
	})

	t.Run("disjoint boxes", func(t *testing.T) {
		a := BoundingBox{X: 0, Y: 0, W: 0.2, H: 0.2}
		b := BoundingBox{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}
		if got := a.IoU(b); got != 0 {
			t.Errorf("expected IoU 0, got %v", got)
		}
	})

	t.Run("partial overlap", func(t *testing.T) {
		// Shifted by a quarter of the width: inter 0.12, union 0.20.
		a := BoundingBox{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}
		b := BoundingBox{X: 0.2, Y: 0.1, W: 0.4, H: 0.4}
		if got := a.IoU(b); math.Abs(got-0.6) > 1e-9 {
			t.Errorf("expected IoU 0.6, got %v", got)
		}
	})
}

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"Tomato":            "tomato",
		"  tomatoes  ":      "tomato",
		"Fresh   Basil":     "basil",
		"EGGS":              "egg",
		"dragonfruit":       "dragonfruit",
		"All-Purpose Flour": "flour",
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(0.7, 0.5)

	t.Run("overlapping duplicates collapse to the best box", func(t *testing.T) {
		a := BoundingBox{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}
		b := BoundingBox{X: 0.2, Y: 0.1, W: 0.4, H: 0.4} // IoU(a,b) = 0.6
		resolved := r.Resolve([]Candidate{
			{Label: "tomato", Box: a, Confidence: 0.8},
			{Label: "Tomato", Box: b, Confidence: 0.9},
		})
		if len(resolved) != 1 {
			t.Fatalf("expected 1 ingredient, got %d", len(resolved))
		}
		ing := resolved[0]
		if ing.Name != "tomato" || ing.Confidence != 0.9 {
			t.Errorf("expected tomato with confidence 0.9, got %q %v", ing.Name, ing.Confidence)
		}
		if len(ing.Boxes) != 1 || ing.Boxes[0] != b {
			t.Errorf("expected only the higher-confidence box to survive, got %v", ing.Boxes)
		}
	})

	t.Run("non-overlapping same label aggregates to one record", func(t *testing.T) {
		resolved := r.Resolve([]Candidate{
			{Label: "tomato", Box: BoundingBox{X: 0, Y: 0, W: 0.2, H: 0.2}, Confidence: 0.75},
			{Label: "tomato", Box: BoundingBox{X: 0.6, Y: 0.6, W: 0.2, H: 0.2}, Confidence: 0.85},
		})
		if len(resolved) != 1 {
			t.Fatalf("expected 1 ingredient, got %d", len(resolved))
		}
		if resolved[0].Confidence != 0.85 {
			t.Errorf("expected max confidence 0.85, got %v", resolved[0].Confidence)
		}
		if len(resolved[0].Boxes) != 2 {
			t.Errorf("expected both distinct boxes kept, got %d", len(resolved[0].Boxes))
		}
	})

	t.Run("low-confidence candidates are dropped", func(t *testing.T) {
		resolved := r.Resolve([]Candidate{
			{Label: "basil", Box: BoundingBox{W: 0.1, H: 0.1}, Confidence: 0.69},
			{Label: "tomato", Box: BoundingBox{W: 0.1, H: 0.1}, Confidence: 0.7},
		})
		if len(resolved) != 1 || resolved[0].Name != "tomato" {
			t.Fatalf("expected only tomato to survive, got %v", resolved)
		}
	})

	t.Run("output is independent of input order", func(t *testing.T) {
		candidates := []Candidate{
			{Label: "Onion", Box: BoundingBox{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}, Confidence: 0.8},
			{Label: "tomato", Box: BoundingBox{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}, Confidence: 0.8},
			{Label: "Tomato", Box: BoundingBox{X: 0.2, Y: 0.1, W: 0.4, H: 0.4}, Confidence: 0.9},
			{Label: "eggs", Box: BoundingBox{X: 0.7, Y: 0.1, W: 0.1, H: 0.1}, Confidence: 0.95},
		}
		reversed := make([]Candidate, len(candidates))
		for i, c := range candidates {
			reversed[len(candidates)-1-i] = c
		}

		a := r.Resolve(candidates)
		b := r.Resolve(reversed)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("resolution differs by input order:\n%v\nvs\n%v", a, b)
		}
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		if resolved := r.Resolve(nil); len(resolved) != 0 {
			t.Errorf("expected empty result, got %v", resolved)
		}
	})
}

func TestConfidenceMap(t *testing.T) {
	m := ConfidenceMap([]ResolvedIngredient{
		{Name: "tomato", Confidence: 0.9},
		{Name: "basil", Confidence: 0.85},
	})
	if m["tomato"] != 0.9 || m["basil"] != 0.85 {
		t.Errorf("unexpected confidence map: %v", m)
	}
}

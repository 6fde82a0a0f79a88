package detection

import (
	"sort"

	"pantry-chef/internal/pkg/common"

	"go.uber.org/zap"
)

// Default thresholds, overridable through configuration.
const (
	DefaultMinConfidence = 0.7
	DefaultIoUThreshold  = 0.5
)

// Resolver consolidates raw detection candidates into a clean
// confidence-scored ingredient set. Pure: no side effects, and the output
// does not depend on input ordering.
type Resolver struct {
	minConfidence float64
	iouThreshold  float64
}

// NewResolver creates a resolver. Non-positive arguments fall back to the
// defaults.
func NewResolver(minConfidence, iouThreshold float64) *Resolver {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}
	return &Resolver{
		minConfidence: minConfidence,
		iouThreshold:  iouThreshold,
	}
}

// Resolve drops low-confidence candidates, folds labels into canonical
// ingredient names, and collapses spatially overlapping same-label
// detections into single items, keeping the highest-confidence box.
// Non-overlapping detections of the same label still aggregate to one
// ingredient record with the max confidence: the pantry tracks ingredient
// types, not item counts.
func (r *Resolver) Resolve(candidates []Candidate) []ResolvedIngredient {
	// Input from the vision collaborator is untrusted; re-sort so the
	// grouping below is deterministic regardless of arrival order.
	kept := make([]Candidate, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		if c.Confidence < r.minConfidence {
			dropped++
			continue
		}
		c.Label = Canonicalize(c.Label)
		if c.Label == "" {
			dropped++
			continue
		}
		kept = append(kept, c)
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Label != kept[j].Label {
			return kept[i].Label < kept[j].Label
		}
		if kept[i].Confidence != kept[j].Confidence {
			return kept[i].Confidence > kept[j].Confidence
		}
		if kept[i].Box.X != kept[j].Box.X {
			return kept[i].Box.X < kept[j].Box.X
		}
		return kept[i].Box.Y < kept[j].Box.Y
	})

	var resolved []ResolvedIngredient
	for i := 0; i < len(kept); {
		j := i
		for j < len(kept) && kept[j].Label == kept[i].Label {
			j++
		}
		resolved = append(resolved, r.consolidate(kept[i:j]))
		i = j
	}

	if dropped > 0 {
		common.LogDebug("detection candidates dropped",
			zap.Int("dropped", dropped),
			zap.Int("resolved", len(resolved)),
			zap.Float64("min_confidence", r.minConfidence),
		)
	}

	return resolved
}

// ConfidenceMap returns the resolved set as an ingredient→confidence map.
func ConfidenceMap(resolved []ResolvedIngredient) map[string]float64 {
	m := make(map[string]float64, len(resolved))
	for _, ing := range resolved {
		m[ing.Name] = ing.Confidence
	}
	return m
}

// consolidate merges one sorted same-label group. Candidates arrive in
// descending confidence order, so a greedy pass keeps the best box of each
// overlap cluster and discards its duplicates.
func (r *Resolver) consolidate(group []Candidate) ResolvedIngredient {
	ing := ResolvedIngredient{
		Name:       group[0].Label,
		Confidence: group[0].Confidence,
	}
	for _, c := range group {
		duplicate := false
		for _, box := range ing.Boxes {
			if box.IoU(c.Box) >= r.iouThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			ing.Boxes = append(ing.Boxes, c.Box)
		}
	}
	return ing
}

package detection

// BoundingBox is an axis-aligned box in normalized image coordinates,
// (X, Y) being the top-left corner. All values are in [0,1].
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the box area, zero for degenerate boxes.
func (b BoundingBox) Area() float64 {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// IoU returns the intersection-over-union overlap ratio with another box.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	ix := overlap1D(b.X, b.X+b.W, o.X, o.X+o.W)
	iy := overlap1D(b.Y, b.Y+b.H, o.Y, o.Y+o.H)
	inter := ix * iy
	if inter <= 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func overlap1D(a0, a1, b0, b1 float64) float64 {
	lo := a0
	if b0 > lo {
		lo = b0
	}
	hi := a1
	if b1 < hi {
		hi = b1
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Candidate is one raw detection from the vision collaborator. Ephemeral:
// produced per upload, never mutated, discarded after resolution.
type Candidate struct {
	Label         string      `json:"label"`
	Box           BoundingBox `json:"box"`
	Confidence    float64     `json:"confidence"`
	SourceImageID string      `json:"source_image_id,omitempty"`
}

// ResolvedIngredient is one canonical ingredient consolidated from a group
// of candidates: the max confidence seen and the surviving distinct boxes.
type ResolvedIngredient struct {
	Name       string        `json:"name"`
	Confidence float64       `json:"confidence"`
	Boxes      []BoundingBox `json:"boxes"`
}

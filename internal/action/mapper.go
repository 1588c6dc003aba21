package action

// NormalizedRange is the size of the grounding model's coordinate space per
// axis. Model points live in [0, NormalizedRange).
const NormalizedRange = 1000

// Geometry is the display size in pixels at the moment it was queried.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolved is an Action bound to absolute, in-bounds pixel coordinates.
type Resolved struct {
	Action Action   `json:"action"`
	Pixel  Point    `json:"pixel"`
	Bounds Geometry `json:"bounds"`
}

// Resolve maps a click's normalized point onto g and clamps it to the display.
// Non-click actions resolve to the zero pixel and keep their kind.
func Resolve(a Action, g Geometry) Resolved {
	r := Resolved{Action: a, Bounds: g}
	if !a.IsClick() {
		return r
	}
	r.Pixel = Clamp(Point{X: scale(a.Point.X, g.Width), Y: scale(a.Point.Y, g.Height)}, g)
	return r
}

// Clamp limits each axis of p to [0, dimension-1]. It is idempotent.
func Clamp(p Point, g Geometry) Point {
	return Point{X: clampAxis(p.X, g.Width), Y: clampAxis(p.Y, g.Height)}
}

func clampAxis(v, dim int) int {
	if dim <= 0 || v < 0 {
		return 0
	}
	if v > dim-1 {
		return dim - 1
	}
	return v
}

// scale computes floor(v / NormalizedRange * dim) in integer arithmetic.
// Inputs outside the model range saturate first; clamping would map them to
// the same edge anyway and this keeps the product from overflowing.
func scale(v, dim int) int {
	if v < 0 {
		v = -1
	} else if v > NormalizedRange {
		v = NormalizedRange
	}
	n := int64(v) * int64(dim)
	q := n / NormalizedRange
	if n < 0 && n%NormalizedRange != 0 {
		q--
	}
	return int(q)
}

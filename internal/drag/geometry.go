package drag

import "math"

type Point struct {
	X, Y float64
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an on-screen rectangle reported by the presentation layer.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive so that adjacent rectangles never both contain a point.
func (r Rect) Contains(p Point) bool {
	if r.Empty() {
		return false
	}
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// edge returns -1 when p is within margin of the left edge of r, +1 for the
// right edge and 0 otherwise. Points outside the vertical span never count.
func (r Rect) edge(p Point, margin float64) int {
	if r.Empty() || margin <= 0 || p.Y < r.Y || p.Y >= r.Y+r.Height {
		return 0
	}
	switch {
	case p.X <= r.X+margin:
		return -1
	case p.X >= r.X+r.Width-margin:
		return 1
	default:
		return 0
	}
}

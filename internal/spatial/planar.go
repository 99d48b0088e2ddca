package spatial

import (
	"math"

	"github.com/golang/geo/r2"
)

// Displacement returns the per-axis movement from a to b
func Displacement(a, b r2.Point) r2.Point {
	return b.Sub(a)
}

// ExceedsOnAnyAxis reports whether |d.X| or |d.Y| is strictly greater than limit.
// A NaN component never exceeds the limit.
func ExceedsOnAnyAxis(d r2.Point, limit float64) bool {
	return math.Abs(d.X) > limit || math.Abs(d.Y) > limit
}

// IsFinite reports whether neither coordinate is infinite. NaN is allowed.
func IsFinite(p r2.Point) bool {
	return !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// IsComplete reports whether both coordinates are present
func IsComplete(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y)
}

// PathLength sums the euclidean step lengths along points, skipping steps
// that touch a missing coordinate
func PathLength(points []r2.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		if !IsComplete(points[i-1]) || !IsComplete(points[i]) {
			continue
		}
		total += points[i].Sub(points[i-1]).Norm()
	}
	return total
}

// BoundingBox returns the rectangle covering all complete points
func BoundingBox(points []r2.Point) r2.Rect {
	rect := r2.EmptyRect()
	for _, p := range points {
		if IsComplete(p) {
			rect = rect.AddPoint(p)
		}
	}
	return rect
}

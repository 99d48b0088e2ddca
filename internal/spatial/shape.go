package spatial

import (
	"math"

	"github.com/golang/geo/r2"
)

// complete drops points with a missing coordinate
func complete(points []r2.Point) []r2.Point {
	out := make([]r2.Point, 0, len(points))
	for _, p := range points {
		if IsComplete(p) {
			out = append(out, p)
		}
	}
	return out
}

// Centroid returns the mean of all complete points
func Centroid(points []r2.Point) r2.Point {
	pts := complete(points)
	if len(pts) == 0 {
		return r2.Point{}
	}

	var sum r2.Point
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(pts)))
}

// RadiusOfGyration measures the spread of complete points around their centroid
func RadiusOfGyration(points []r2.Point) float64 {
	pts := complete(points)
	if len(pts) == 0 {
		return 0
	}

	center := Centroid(pts)
	var sumSquared float64
	for _, p := range pts {
		d := p.Sub(center).Norm()
		sumSquared += d * d
	}
	return math.Sqrt(sumSquared / float64(len(pts)))
}

// Tortuosity is path length over straight-line distance between the first
// and last complete points. 1 means a straight walk.
func Tortuosity(points []r2.Point) float64 {
	pts := complete(points)
	if len(pts) < 2 {
		return 1
	}

	straight := pts[len(pts)-1].Sub(pts[0]).Norm()
	if straight == 0 {
		return 1
	}
	return PathLength(pts) / straight
}

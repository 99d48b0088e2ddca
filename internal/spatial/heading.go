package spatial

import (
	"math"

	"github.com/golang/geo/r2"
)

// Headings returns the direction of each step between consecutive complete
// points, in radians counter-clockwise from the +x axis. Zero-length steps
// have no direction and are skipped.
func Headings(points []r2.Point) []float64 {
	var headings []float64
	for i := 1; i < len(points); i++ {
		if !IsComplete(points[i-1]) || !IsComplete(points[i]) {
			continue
		}
		d := points[i].Sub(points[i-1])
		if d.X == 0 && d.Y == 0 {
			continue
		}
		headings = append(headings, math.Atan2(d.Y, d.X))
	}
	return headings
}

// CircularMean returns the mean direction of angles in radians
func CircularMean(angles []float64) float64 {
	if len(angles) == 0 {
		return 0
	}

	var sumSin, sumCos float64
	for _, a := range angles {
		sumSin += math.Sin(a)
		sumCos += math.Cos(a)
	}
	return math.Atan2(sumSin, sumCos)
}

// MeanResultantLength ranges from 0 (directions cancel out) to 1 (all
// angles identical)
func MeanResultantLength(angles []float64) float64 {
	if len(angles) == 0 {
		return 0
	}

	var sumSin, sumCos float64
	for _, a := range angles {
		sumSin += math.Sin(a)
		sumCos += math.Cos(a)
	}
	n := float64(len(angles))
	return math.Sqrt(sumSin*sumSin+sumCos*sumCos) / n
}

// Degrees converts radians to degrees in [0, 360)
func Degrees(radians float64) float64 {
	deg := math.Mod(radians*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

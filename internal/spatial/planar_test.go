package spatial

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceedsOnAnyAxis(t *testing.T) {
	tests := []struct {
		name string
		d    r2.Point
		want bool
	}{
		{"inside", r2.Point{X: 10, Y: -10}, false},
		{"at limit", r2.Point{X: 500, Y: -500}, false},
		{"x over", r2.Point{X: 500.5, Y: 0}, true},
		{"negative y over", r2.Point{X: 0, Y: -501}, true},
		{"nan", r2.Point{X: math.NaN(), Y: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExceedsOnAnyAxis(tt.d, 500))
		})
	}
}

func TestPathLength(t *testing.T) {
	points := []r2.Point{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: math.NaN(), Y: 1}, {X: 6, Y: 8}, {X: 6, Y: 9}}
	assert.InDelta(t, 6.0, PathLength(points), 1e-9)
	assert.Equal(t, 0.0, PathLength(nil))
}

func TestBoundingBox(t *testing.T) {
	rect := BoundingBox([]r2.Point{{X: 1, Y: 5}, {X: -2, Y: 3}, {X: math.NaN(), Y: 100}})
	assert.Equal(t, -2.0, rect.X.Lo)
	assert.Equal(t, 1.0, rect.X.Hi)
	assert.Equal(t, 3.0, rect.Y.Lo)
	assert.Equal(t, 5.0, rect.Y.Hi)
	assert.True(t, BoundingBox(nil).IsEmpty())
}

func TestCentroidAndGyration(t *testing.T) {
	points := []r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: math.NaN(), Y: 7}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	c := Centroid(points)
	assert.InDelta(t, 2.0, c.X, 1e-9)
	assert.InDelta(t, 2.0, c.Y, 1e-9)
	assert.InDelta(t, 2*math.Sqrt2, RadiusOfGyration(points), 1e-9)
	assert.Equal(t, 0.0, RadiusOfGyration(nil))
}

func TestTortuosity(t *testing.T) {
	straight := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	assert.InDelta(t, 1.0, Tortuosity(straight), 1e-9)

	detour := []r2.Point{{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 4, Y: 3}}
	assert.InDelta(t, 7.0/5, Tortuosity(detour), 1e-9)

	loop := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	assert.Equal(t, 1.0, Tortuosity(loop))
	assert.Equal(t, 1.0, Tortuosity([]r2.Point{{X: 1, Y: 1}}))
}

func TestHeadings(t *testing.T) {
	points := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: math.NaN(), Y: 2}}
	headings := Headings(points)
	require.Len(t, headings, 2)
	assert.InDelta(t, 0.0, headings[0], 1e-9)
	assert.InDelta(t, math.Pi/2, headings[1], 1e-9)

	assert.InDelta(t, 45.0, Degrees(CircularMean(headings)), 1e-9)
	assert.InDelta(t, math.Sqrt2/2, MeanResultantLength(headings), 1e-9)
}

func TestCircularMean_WrapsAround(t *testing.T) {
	angles := []float64{350 * math.Pi / 180, 10 * math.Pi / 180}
	assert.InDelta(t, 0.0, CircularMean(angles), 1e-9)
	assert.InDelta(t, 270.0, Degrees(-math.Pi/2), 1e-9)
	assert.Zero(t, MeanResultantLength(nil))
}

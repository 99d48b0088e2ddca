package models

import (
	"fmt"
	"strconv"

	"github.com/golang/geo/r2"
)

// NumDimensions is the number of coordinates per position (x, y)
const NumDimensions = 2

// WindowParams defines the shape of a training window
type WindowParams struct {
	InputSeqLength  int `json:"input_seq_length"`
	OutputSeqLength int `json:"output_seq_length"`
	NumDimensions   int `json:"num_dimensions"`
}

// DefaultWindowParams provides the default window shape
var DefaultWindowParams = WindowParams{
	InputSeqLength:  5,
	OutputSeqLength: 1,
	NumDimensions:   NumDimensions,
}

// Validate checks the window shape
func (p WindowParams) Validate() error {
	if p.InputSeqLength < 1 {
		return fmt.Errorf("input_seq_length must be at least 1, got %d", p.InputSeqLength)
	}
	if p.OutputSeqLength < 1 {
		return fmt.Errorf("output_seq_length must be at least 1, got %d", p.OutputSeqLength)
	}
	if p.NumDimensions != NumDimensions {
		return fmt.Errorf("num_dimensions must be %d, got %d", NumDimensions, p.NumDimensions)
	}
	return nil
}

// WindowLength returns the number of consecutive positions one row covers
func (p WindowParams) WindowLength() int {
	return p.InputSeqLength + p.OutputSeqLength
}

// FeatureCount returns the number of coordinate values in one row
func (p WindowParams) FeatureCount() int {
	return p.WindowLength() * p.NumDimensions
}

// Columns returns the flat table header: trajectory_id, x_pos, y_pos, x_1, y_1, ...
func (p WindowParams) Columns() []string {
	cols := make([]string, 0, 1+p.FeatureCount())
	cols = append(cols, "trajectory_id", "x_pos", "y_pos")
	for i := 1; i < p.WindowLength(); i++ {
		cols = append(cols, "x_"+strconv.Itoa(i), "y_"+strconv.Itoa(i))
	}
	return cols
}

// TrainingRow is one fixed-length sample drawn from a single trajectory
type TrainingRow struct {
	TrajectoryID int64      `json:"trajectory_id"`
	Input        []r2.Point `json:"input"`
	Output       []r2.Point `json:"output"`
}

// Points returns the input window followed by the output window
func (r TrainingRow) Points() []r2.Point {
	points := make([]r2.Point, 0, len(r.Input)+len(r.Output))
	points = append(points, r.Input...)
	return append(points, r.Output...)
}

// Flatten returns the row as [trajectory_id, x0, y0, x1, y1, ...]
func (r TrainingRow) Flatten() []float64 {
	points := r.Points()
	values := make([]float64, 0, 1+2*len(points))
	values = append(values, float64(r.TrajectoryID))
	for _, p := range points {
		values = append(values, p.X, p.Y)
	}
	return values
}

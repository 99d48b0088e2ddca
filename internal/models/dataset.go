package models

import "time"

// SourceReport summarizes what one source contributed to a dataset
type SourceReport struct {
	Source       string  `json:"source" csv:"source"`
	Records      int     `json:"records" csv:"records"`
	Skipped      int     `json:"skipped" csv:"skipped_rows"`
	Trajectories int     `json:"trajectories" csv:"trajectories"`
	Rows         int     `json:"rows" csv:"training_rows"`
	MedianPoints float64 `json:"median_points" csv:"median_trajectory_points"`
	P90Points    float64 `json:"p90_points" csv:"p90_trajectory_points"`

	// Means over trajectories with more than one point
	MeanDuration    float64 `json:"mean_duration_s" csv:"mean_duration_s"`
	MeanPathLength  float64 `json:"mean_path_length" csv:"mean_path_length"`
	MeanTortuosity  float64 `json:"mean_tortuosity" csv:"mean_tortuosity"`
	MeanGyration    float64 `json:"mean_radius_of_gyration" csv:"mean_radius_of_gyration"`
	MeanConsistency float64 `json:"mean_heading_consistency" csv:"mean_heading_consistency"`

	Error string `json:"error,omitempty" csv:"error"`

	PointCounts []int               `json:"-" csv:"-"` // Records per trajectory, in trajectory order
	Summaries   []TrajectorySummary `json:"-" csv:"-"` // Set while processing, stored separately
}

// Failed reports whether the source was skipped
func (r SourceReport) Failed() bool {
	return r.Error != ""
}

// DatasetInfo describes a cached dataset without its rows
type DatasetInfo struct {
	Key               string       `json:"key"`
	Params            WindowParams `json:"params"`
	TimeThreshold     Duration     `json:"time_threshold"`
	PositionThreshold float64      `json:"position_threshold"`
	RowCount          int          `json:"row_count"`
	SourceCount       int          `json:"source_count"`
	ProblemCount      int          `json:"problem_count"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Dataset is the concatenation of training rows across all sources
type Dataset struct {
	DatasetInfo
	Rows    []TrainingRow  `json:"rows,omitempty"`
	Sources []SourceReport `json:"sources"`
}

// ProblemSources returns the identifiers of sources that failed to parse
func (d *Dataset) ProblemSources() []string {
	var problems []string
	for _, s := range d.Sources {
		if s.Failed() {
			problems = append(problems, s.Source)
		}
	}
	return problems
}

// Duration is a time.Duration that encodes as a string like "2s"
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

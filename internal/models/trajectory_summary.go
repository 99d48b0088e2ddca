package models

import "time"

// TrajectorySummary describes the shape and extent of one segmented trajectory
type TrajectorySummary struct {
	Source       string       `json:"source"`
	TrajectoryID int64        `json:"trajectory_id"`
	PersonID     string       `json:"person_id"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	Points       int          `json:"points"`
	PathLength   float64      `json:"path_length"`
	Width        float64      `json:"width"`  // Bounding box extent along x
	Height       float64      `json:"height"` // Bounding box extent along y
	Tortuosity   float64      `json:"tortuosity"`
	Gyration     float64      `json:"radius_of_gyration"`
	Heading      float64      `json:"mean_heading_deg"`
	Consistency  float64      `json:"heading_consistency"`
	OpenedBy     BoundaryKind `json:"opened_by"`
}

// Duration returns the time covered by the trajectory
func (s TrajectorySummary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Moving reports whether the trajectory has more than one point
func (s TrajectorySummary) Moving() bool {
	return s.Points > 1
}

// TrajectoryFilter represents filter and pagination parameters for listing
// trajectory summaries
type TrajectoryFilter struct {
	Source   string `form:"source"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// Normalize clamps pagination to sane bounds
func (f *TrajectoryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 100
	}
	if f.PageSize > 1000 {
		f.PageSize = 1000
	}
}

// TrajectoriesResponse represents a paginated page of trajectory summaries
type TrajectoriesResponse struct {
	Data       []TrajectorySummary `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

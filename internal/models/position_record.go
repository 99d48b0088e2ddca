package models

import (
	"math"
	"time"

	"github.com/golang/geo/r2"
)

// PositionRecord represents one observation from a raw pedestrian position log
type PositionRecord struct {
	Timestamp time.Time `json:"timestamp"` // Microsecond precision
	Place     string    `json:"place"`     // Source/location identifier, not used by segmentation
	Position  r2.Point  `json:"position"`  // NaN coordinate means the value was missing in the source
	PersonID  string    `json:"person_id"` // Stable within one source only
}

// HasPosition reports whether both coordinates are present
func (r PositionRecord) HasPosition() bool {
	return !math.IsNaN(r.Position.X) && !math.IsNaN(r.Position.Y)
}

// BoundaryKind names the rule that opened a trajectory
type BoundaryKind string

// BoundaryKind constants
const (
	BoundaryNone     BoundaryKind = ""
	BoundaryFirst    BoundaryKind = "first"    // First record of the sequence
	BoundaryPerson   BoundaryKind = "person"   // Person changed
	BoundaryTime     BoundaryKind = "time"     // Time gap above threshold on the same date
	BoundaryPosition BoundaryKind = "position" // Displacement above threshold on either axis
)

// Hard reports whether the boundary comes from a person change or a time gap
func (k BoundaryKind) Hard() bool {
	return k == BoundaryFirst || k == BoundaryPerson || k == BoundaryTime
}

// LabeledRecord is a position record annotated with its trajectory
type LabeledRecord struct {
	PositionRecord
	TrajectoryID int64        `json:"trajectory_id"`
	Boundary     BoundaryKind `json:"boundary,omitempty"` // Set on the first record of each trajectory
}

// Source is one raw input file contributing position records
type Source struct {
	Name    string `json:"name"`    // Data file name, used in problem source lists
	Path    string `json:"path"`    // Readable tabular file
	Archive string `json:"archive"` // Archive the file was extracted from, if any
	Err     error  `json:"-"`       // Set when the source could not be resolved
}

package trajectory

import (
	"github.com/golang/geo/r2"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/spatial"
)

// WindowBuilder turns trajectory-labeled records into fixed-length training rows
type WindowBuilder struct {
	Params models.WindowParams
}

// NewWindowBuilder creates a new window builder
func NewWindowBuilder(params models.WindowParams) *WindowBuilder {
	return &WindowBuilder{Params: params}
}

// Build emits one row per record that has InputSeqLength+OutputSeqLength-1
// successors inside its own trajectory, all with complete coordinates.
// Successors are taken in the order records appear in labeled. Rows keep the
// order of their first record; trajectories that are too short yield nothing.
func (b *WindowBuilder) Build(labeled []models.LabeledRecord) []models.TrainingRow {
	length := b.Params.WindowLength()
	if length <= 0 || len(labeled) < length {
		return nil
	}

	// index of every record inside its trajectory, in input order
	members := make(map[int64][]int)
	offset := make([]int, len(labeled))
	for i, r := range labeled {
		offset[i] = len(members[r.TrajectoryID])
		members[r.TrajectoryID] = append(members[r.TrajectoryID], i)
	}

	var rows []models.TrainingRow
	for i, r := range labeled {
		group := members[r.TrajectoryID]
		start := offset[i]
		if start+length > len(group) {
			continue
		}

		window := make([]r2.Point, length)
		complete := true
		for k := 0; k < length; k++ {
			p := labeled[group[start+k]].Position
			if !spatial.IsComplete(p) {
				complete = false
				break
			}
			window[k] = p
		}
		if !complete {
			continue
		}

		in := b.Params.InputSeqLength
		rows = append(rows, models.TrainingRow{
			TrajectoryID: r.TrajectoryID,
			Input:        window[:in:in],
			Output:       window[in:],
		})
	}

	return rows
}

// ExpectedRows returns how many rows a trajectory of n complete records yields
func (b *WindowBuilder) ExpectedRows(n int) int {
	rows := n - b.Params.WindowLength() + 1
	if rows < 0 {
		return 0
	}
	return rows
}

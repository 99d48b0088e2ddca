package trajectory

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/spatial"
)

// Summarize groups segmenter output into per-trajectory summaries, in order of
// first appearance
func Summarize(labeled []models.LabeledRecord) []models.TrajectorySummary {
	var summaries []models.TrajectorySummary
	index := make(map[int64]int)
	paths := make(map[int64][]r2.Point)

	for _, r := range labeled {
		i, ok := index[r.TrajectoryID]
		if !ok {
			i = len(summaries)
			index[r.TrajectoryID] = i
			summaries = append(summaries, models.TrajectorySummary{
				TrajectoryID: r.TrajectoryID,
				PersonID:     r.PersonID,
				Start:        r.Timestamp,
				End:          r.Timestamp,
				OpenedBy:     r.Boundary,
			})
		}

		s := &summaries[i]
		s.Points++
		if r.Timestamp.Before(s.Start) {
			s.Start = r.Timestamp
		}
		if r.Timestamp.After(s.End) {
			s.End = r.Timestamp
		}
		paths[r.TrajectoryID] = append(paths[r.TrajectoryID], r.Position)
	}

	for i := range summaries {
		s := &summaries[i]
		path := paths[s.TrajectoryID]
		s.PathLength = spatial.PathLength(path)
		s.Tortuosity = spatial.Tortuosity(path)
		s.Gyration = spatial.RadiusOfGyration(path)

		if box := spatial.BoundingBox(path); !box.IsEmpty() {
			size := box.Size()
			s.Width, s.Height = size.X, size.Y
		}

		headings := spatial.Headings(path)
		if len(headings) > 0 {
			s.Heading = spatial.Degrees(spatial.CircularMean(headings))
			s.Consistency = spatial.MeanResultantLength(headings)
		}
	}

	return summaries
}

// PointCounts returns the number of records in each summarized trajectory
func PointCounts(summaries []models.TrajectorySummary) []int {
	counts := make([]int, len(summaries))
	for i, s := range summaries {
		counts[i] = s.Points
	}
	return counts
}

// Geometry averages the shape of the moving trajectories in summaries.
// Single-point trajectories have no shape and are left out.
type Geometry struct {
	MeanDuration    float64 // Seconds
	MeanPathLength  float64
	MeanTortuosity  float64
	MeanGyration    float64
	MeanConsistency float64
}

// Aggregate computes the mean geometry of the moving trajectories
func Aggregate(summaries []models.TrajectorySummary) Geometry {
	var duration, path, tortuosity, gyration, consistency []float64
	for _, s := range summaries {
		if !s.Moving() {
			continue
		}
		duration = append(duration, s.Duration().Seconds())
		path = append(path, s.PathLength)
		tortuosity = append(tortuosity, s.Tortuosity)
		gyration = append(gyration, s.Gyration)
		consistency = append(consistency, s.Consistency)
	}
	if len(path) == 0 {
		return Geometry{}
	}

	return Geometry{
		MeanDuration:    stat.Mean(duration, nil),
		MeanPathLength:  stat.Mean(path, nil),
		MeanTortuosity:  stat.Mean(tortuosity, nil),
		MeanGyration:    stat.Mean(gyration, nil),
		MeanConsistency: stat.Mean(consistency, nil),
	}
}

package trajectory

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/trajectory-prep/internal/models"
)

func segmentAndBuild(t *testing.T, records []models.PositionRecord, params models.WindowParams) ([]models.LabeledRecord, []models.TrainingRow) {
	t.Helper()
	labeled, err := NewSegmenter(DefaultThresholds).Segment(records)
	require.NoError(t, err)
	return labeled, NewWindowBuilder(params).Build(labeled)
}

func walk(person string, n int, start time.Duration) []models.PositionRecord {
	records := make([]models.PositionRecord, n)
	for i := 0; i < n; i++ {
		records[i] = rec(person, start+time.Duration(i)*time.Second, float64(i), float64(i))
	}
	return records
}

func TestBuild_GapScenarioYieldsNoRows(t *testing.T) {
	labeled, rows := segmentAndBuild(t, []models.PositionRecord{
		rec("A", 0, 0, 0),
		rec("A", time.Second, 10, 10),
		rec("A", 5*time.Second, 20, 20),
	}, models.DefaultWindowParams)

	assert.Equal(t, []int64{1, 1, 2}, ids(labeled))
	assert.Empty(t, rows)
}

func TestBuild_SevenRecordWalk(t *testing.T) {
	_, rows := segmentAndBuild(t, walk("B", 7, 0), models.DefaultWindowParams)

	require.Len(t, rows, 2)
	for i, row := range rows {
		assert.Equal(t, int64(1), row.TrajectoryID)
		require.Len(t, row.Input, 5)
		require.Len(t, row.Output, 1)
		for k, p := range row.Input {
			assert.Equal(t, r2.Point{X: float64(i + k), Y: float64(i + k)}, p)
		}
		assert.Equal(t, r2.Point{X: float64(i + 5), Y: float64(i + 5)}, row.Output[0])
	}
}

func TestBuild_PersonChangeSplitsWindows(t *testing.T) {
	records := append(walk("A", 4, 0), walk("B", 4, 4*time.Second)...)
	// identical motion, but the person change still separates trajectories
	for i := range records[4:] {
		records[4+i].Position = r2.Point{X: float64(4 + i), Y: float64(4 + i)}
	}

	labeled, rows := segmentAndBuild(t, records, models.DefaultWindowParams)
	assert.Equal(t, []int64{1, 1, 1, 1, 2, 2, 2, 2}, ids(labeled))
	assert.Empty(t, rows)
}

func TestBuild_NoWindowCrossesTrajectory(t *testing.T) {
	var records []models.PositionRecord
	records = append(records, walk("A", 9, 0)...)
	records = append(records, walk("A", 6, time.Minute)...)
	records = append(records, walk("B", 3, 0)...)
	records = append(records, walk("C", 12, 0)...)

	params := models.WindowParams{InputSeqLength: 3, OutputSeqLength: 2, NumDimensions: 2}
	labeled, rows := segmentAndBuild(t, records, params)

	// trajectory sizes 9, 6, 3, 12 with window length 5
	b := NewWindowBuilder(params)
	want := b.ExpectedRows(9) + b.ExpectedRows(6) + b.ExpectedRows(3) + b.ExpectedRows(12)
	require.Len(t, rows, want)
	assert.Equal(t, 5+2+0+8, want)

	// every window must be a contiguous slice of its own trajectory
	byTrajectory := make(map[int64][]r2.Point)
	for _, r := range labeled {
		byTrajectory[r.TrajectoryID] = append(byTrajectory[r.TrajectoryID], r.Position)
	}
	for _, row := range rows {
		points := row.Points()
		track := byTrajectory[row.TrajectoryID]
		found := false
		for s := 0; s+len(points) <= len(track); s++ {
			if assert.ObjectsAreEqual(track[s:s+len(points)], points) {
				found = true
				break
			}
		}
		assert.True(t, found, "window of trajectory %d is not contiguous", row.TrajectoryID)
	}
}

func TestBuild_DropsWindowsWithMissingCoordinates(t *testing.T) {
	records := walk("A", 8, 0)
	records[6].Position.Y = math.NaN()

	_, rows := segmentAndBuild(t, records, models.DefaultWindowParams)

	// only the window starting at 0 ends before index 6
	require.Len(t, rows, 1)
	assert.Equal(t, r2.Point{X: 0, Y: 0}, rows[0].Input[0])

	records = walk("A", 8, 0)
	records[0].Position.X = math.NaN()
	_, rows = segmentAndBuild(t, records, models.DefaultWindowParams)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, rows[0].Input[0].X)
}

func TestBuild_NonContiguousLabels(t *testing.T) {
	labeled := []models.LabeledRecord{
		{PositionRecord: models.PositionRecord{Position: r2.Point{X: 0}}, TrajectoryID: 1},
		{PositionRecord: models.PositionRecord{Position: r2.Point{X: 100}}, TrajectoryID: 2},
		{PositionRecord: models.PositionRecord{Position: r2.Point{X: 1}}, TrajectoryID: 1},
		{PositionRecord: models.PositionRecord{Position: r2.Point{X: 2}}, TrajectoryID: 1},
	}

	rows := NewWindowBuilder(models.WindowParams{InputSeqLength: 2, OutputSeqLength: 1, NumDimensions: 2}).Build(labeled)
	require.Len(t, rows, 1)
	assert.Equal(t, []r2.Point{{X: 0}, {X: 1}}, rows[0].Input)
	assert.Equal(t, []r2.Point{{X: 2}}, rows[0].Output)
}

func TestBuild_Idempotent(t *testing.T) {
	var records []models.PositionRecord
	records = append(records, walk("1", 20, 0)...)
	records = append(records, walk("2", 11, 0)...)

	_, first := segmentAndBuild(t, records, models.DefaultWindowParams)
	_, second := segmentAndBuild(t, records, models.DefaultWindowParams)
	assert.Equal(t, first, second)
	assert.Len(t, first, 15+6)
}

func TestExpectedRows(t *testing.T) {
	b := NewWindowBuilder(models.DefaultWindowParams)
	assert.Equal(t, 0, b.ExpectedRows(0))
	assert.Equal(t, 0, b.ExpectedRows(5))
	assert.Equal(t, 1, b.ExpectedRows(6))
	assert.Equal(t, 2, b.ExpectedRows(7))
}

func TestSummarize(t *testing.T) {
	records := append(walk("A", 3, 0), rec("A", time.Minute, 50, 50))
	labeled, err := NewSegmenter(DefaultThresholds).Segment(records)
	require.NoError(t, err)

	summaries := Summarize(labeled)
	require.Len(t, summaries, 2)

	assert.Equal(t, int64(1), summaries[0].TrajectoryID)
	assert.Equal(t, 3, summaries[0].Points)
	assert.Equal(t, 2*time.Second, summaries[0].Duration())
	assert.InDelta(t, 2*math.Sqrt2, summaries[0].PathLength, 1e-9)
	assert.Equal(t, models.BoundaryFirst, summaries[0].OpenedBy)
	assert.InDelta(t, 1.0, summaries[0].Tortuosity, 1e-9)
	assert.InDelta(t, math.Sqrt(4.0/3), summaries[0].Gyration, 1e-9)
	assert.InDelta(t, 45.0, summaries[0].Heading, 1e-9)
	assert.InDelta(t, 1.0, summaries[0].Consistency, 1e-9)
	assert.Equal(t, 2.0, summaries[0].Width)
	assert.Equal(t, 2.0, summaries[0].Height)

	assert.Equal(t, 1, summaries[1].Points)
	assert.Equal(t, models.BoundaryTime, summaries[1].OpenedBy)
	assert.Equal(t, 1.0, summaries[1].Tortuosity)
	assert.Zero(t, summaries[1].Consistency)
	assert.Equal(t, []int{3, 1}, PointCounts(summaries))
}

func TestAggregate_SkipsSinglePointTrajectories(t *testing.T) {
	records := append(walk("A", 3, 0), rec("A", time.Minute, 50, 50))
	labeled, err := NewSegmenter(DefaultThresholds).Segment(records)
	require.NoError(t, err)

	geometry := Aggregate(Summarize(labeled))
	assert.InDelta(t, 2.0, geometry.MeanDuration, 1e-9)
	assert.InDelta(t, 2*math.Sqrt2, geometry.MeanPathLength, 1e-9)
	assert.InDelta(t, 1.0, geometry.MeanTortuosity, 1e-9)
	assert.InDelta(t, math.Sqrt(4.0/3), geometry.MeanGyration, 1e-9)
	assert.InDelta(t, 1.0, geometry.MeanConsistency, 1e-9)

	assert.Equal(t, Geometry{}, Aggregate(nil))
}

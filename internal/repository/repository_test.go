package repository

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/trajectory-prep/internal/database"
	"github.com/jengzang/trajectory-prep/internal/models"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "repo.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, database.Migrations).RunMigrations())
	return db
}

var smallParams = models.WindowParams{InputSeqLength: 2, OutputSeqLength: 1, NumDimensions: 2}

func row(id int64, base float64) models.TrainingRow {
	return models.TrainingRow{
		TrajectoryID: id,
		Input:        []r2.Point{{X: base, Y: -base}, {X: base + 1, Y: -base - 1}},
		Output:       []r2.Point{{X: base + 2, Y: -base - 2}},
	}
}

func sampleDataset(key string) *models.Dataset {
	return &models.Dataset{
		DatasetInfo: models.DatasetInfo{
			Key:               key,
			Params:            smallParams,
			TimeThreshold:     models.Duration(2 * time.Second),
			PositionThreshold: 500,
		},
		Rows: []models.TrainingRow{row(1, 0), row(1, 10), row(4, 20)},
		Sources: []models.SourceReport{
			{
				Source: "a.csv", Records: 10, Trajectories: 2, Rows: 3, MedianPoints: 5, P90Points: 5,
				MeanDuration: 2.5, MeanPathLength: 40, MeanTortuosity: 1.25, MeanGyration: 7, MeanConsistency: 0.9,
				PointCounts: []int{6, 4},
				Summaries:   []models.TrajectorySummary{summary("a.csv", 1, 6), summary("a.csv", 2, 4)},
			},
			{Source: "b.csv", Error: "source is empty"},
		},
	}
}

var start = time.Date(2012, 10, 24, 9, 0, 0, 123456000, time.UTC)

func summary(source string, id int64, points int) models.TrajectorySummary {
	return models.TrajectorySummary{
		Source:       source,
		TrajectoryID: id,
		PersonID:     "7",
		Start:        start,
		End:          start.Add(time.Duration(points) * 500 * time.Millisecond),
		Points:       points,
		PathLength:   float64(points) * 10,
		Width:        30,
		Height:       4,
		Tortuosity:   1.1,
		Gyration:     12.5,
		Heading:      270,
		Consistency:  0.8,
		OpenedBy:     models.BoundaryTime,
	}
}

// withoutSummaries returns reports as loaded back from the source report table
func withoutSummaries(reports []models.SourceReport) []models.SourceReport {
	out := make([]models.SourceReport, len(reports))
	for i, r := range reports {
		r.Summaries = nil
		out[i] = r
	}
	return out
}

func TestDatasetRepository_SaveAndGet(t *testing.T) {
	repo := NewDatasetRepository(openDB(t))

	exists, err := repo.Exists("k1")
	require.NoError(t, err)
	assert.False(t, exists)

	ds := sampleDataset("k1")
	require.NoError(t, repo.Save(ds))
	assert.Equal(t, 3, ds.RowCount)
	assert.Equal(t, 1, ds.ProblemCount)

	exists, err = repo.Exists("k1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, smallParams, got.Params)
	assert.Equal(t, models.Duration(2*time.Second), got.TimeThreshold)
	assert.Equal(t, 500.0, got.PositionThreshold)
	assert.Equal(t, ds.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	assert.Equal(t, ds.Rows, got.Rows)
	assert.Equal(t, withoutSummaries(ds.Sources), got.Sources)
	assert.Equal(t, []string{"b.csv"}, got.ProblemSources())
}

func TestDatasetRepository_SaveReplaces(t *testing.T) {
	repo := NewDatasetRepository(openDB(t))
	require.NoError(t, repo.Save(sampleDataset("k1")))

	replacement := sampleDataset("k1")
	replacement.Rows = replacement.Rows[:1]
	replacement.Sources = replacement.Sources[:1]
	require.NoError(t, repo.Save(replacement))

	got, err := repo.Get("k1")
	require.NoError(t, err)
	assert.Len(t, got.Rows, 1)
	assert.Equal(t, 1, got.RowCount)
	assert.Empty(t, got.ProblemSources())
}

func TestDatasetRepository_ListRowsPaging(t *testing.T) {
	repo := NewDatasetRepository(openDB(t))
	require.NoError(t, repo.Save(sampleDataset("k1")))

	page, err := repo.ListRows("k1", smallParams, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, row(1, 10), page[0])
	assert.Equal(t, row(4, 20), page[1])

	page, err = repo.ListRows("k1", smallParams, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestDatasetRepository_ListAndDelete(t *testing.T) {
	repo := NewDatasetRepository(openDB(t))

	older := sampleDataset("old")
	older.CreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(older))
	require.NoError(t, repo.Save(sampleDataset("new")))

	infos, err := repo.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "new", infos[0].Key)
	assert.Equal(t, "old", infos[1].Key)

	require.NoError(t, repo.Delete("old"))
	_, err = repo.GetInfo("old")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.ErrorIs(t, repo.Delete("old"), ErrDatasetNotFound)

	rows, err := repo.ListRows("old", smallParams, -1, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDatasetRepository_ListTrajectories(t *testing.T) {
	repo := NewDatasetRepository(openDB(t))
	ds := sampleDataset("k1")
	ds.Sources = append(ds.Sources, models.SourceReport{
		Source:    "c.csv",
		Summaries: []models.TrajectorySummary{summary("c.csv", 1, 3)},
	})
	require.NoError(t, repo.Save(ds))

	all, total, err := repo.ListTrajectories("k1", models.TrajectoryFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, ds.Sources[0].Summaries[0], all[0])
	assert.Equal(t, "c.csv", all[2].Source)
	assert.Equal(t, 1500*time.Millisecond, all[2].Duration())

	page, total, err := repo.ListTrajectories("k1", models.TrajectoryFilter{Source: "a.csv", Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].TrajectoryID)

	require.NoError(t, repo.Delete("k1"))
	all, total, err = repo.ListTrajectories("k1", models.TrajectoryFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, all)
}

func TestRunRepository_Lifecycle(t *testing.T) {
	repo := NewRunRepository(openDB(t))

	run := &models.PrepareRun{ID: "run-1", Force: true, CreatedBy: "alice"}
	require.NoError(t, repo.Create(run))
	assert.Equal(t, models.RunStatusPending, run.Status)

	active, err := repo.HasActive()
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, repo.MarkAsRunning("run-1", 4))
	require.NoError(t, repo.UpdateProgress("run-1", 2, 1, 50))

	got, err := repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.True(t, got.Force)
	assert.Equal(t, 4, got.TotalSources)
	assert.Equal(t, 2, got.ProcessedSources)
	assert.Equal(t, 1, got.FailedSources)
	assert.Equal(t, 50.0, got.ProgressPercent)
	assert.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, repo.MarkAsCompleted("run-1", "abc", true))
	got, err = repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, "abc", got.DatasetKey)
	assert.True(t, got.Cached)
	assert.Equal(t, 100.0, got.ProgressPercent)
	assert.NotNil(t, got.CompletedAt)

	active, err = repo.HasActive()
	require.NoError(t, err)
	assert.False(t, active)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepository_ListAndInterrupted(t *testing.T) {
	repo := NewRunRepository(openDB(t))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(&models.PrepareRun{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, repo.MarkAsFailed("a", "boom"))

	runs, err := repo.List(models.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)

	failed, err := repo.List(models.RunFilter{Status: models.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].ErrorMessage)

	n, err := repo.FailInterrupted()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	paged, err := repo.List(models.RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].ID)
	assert.Equal(t, "interrupted", paged[0].ErrorMessage)
}

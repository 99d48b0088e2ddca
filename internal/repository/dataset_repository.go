package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/trajectory-prep/internal/cache"
	"github.com/jengzang/trajectory-prep/internal/database"
	"github.com/jengzang/trajectory-prep/internal/models"
)

// ErrDatasetNotFound is returned when no dataset is cached under a key
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetRepository stores prepared datasets keyed by their cache key
type DatasetRepository struct {
	db *sql.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

const datasetColumns = `
	key, input_seq_length, output_seq_length, num_dimensions, time_threshold_ns,
	position_threshold, row_count, source_count, problem_count, created_at`

// Exists reports whether a dataset is cached under key
func (r *DatasetRepository) Exists(key string) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM datasets WHERE key = ?", key).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check dataset: %w", err)
	}
	return count > 0, nil
}

// Save stores a dataset with its rows and source reports, replacing any
// dataset already cached under the same key
func (r *DatasetRepository) Save(ds *models.Dataset) error {
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}
	ds.RowCount = len(ds.Rows)
	ds.SourceCount = len(ds.Sources)
	ds.ProblemCount = len(ds.ProblemSources())

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if err := deleteDataset(tx, ds.Key); err != nil {
			return err
		}

		_, err := tx.Exec(`INSERT INTO datasets (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ds.Key,
			ds.Params.InputSeqLength,
			ds.Params.OutputSeqLength,
			ds.Params.NumDimensions,
			time.Duration(ds.TimeThreshold).Nanoseconds(),
			ds.PositionThreshold,
			ds.RowCount,
			ds.SourceCount,
			ds.ProblemCount,
			toMillis(ds.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert dataset: %w", err)
		}

		rowStmt, err := tx.Prepare("INSERT INTO training_rows (dataset_key, seq, trajectory_id, features) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare row insert: %w", err)
		}
		defer rowStmt.Close()

		for i, row := range ds.Rows {
			if _, err := rowStmt.Exec(ds.Key, i, row.TrajectoryID, cache.EncodeRow(row)); err != nil {
				return fmt.Errorf("failed to insert training row %d: %w", i, err)
			}
		}

		reportStmt, err := tx.Prepare(`
			INSERT INTO source_reports (
				dataset_key, position, source, records, skipped, trajectories,
				row_count, median_points, p90_points, mean_duration_s, mean_path_length,
				mean_tortuosity, mean_gyration, mean_consistency, error, point_counts
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare report insert: %w", err)
		}
		defer reportStmt.Close()

		for i, s := range ds.Sources {
			_, err := reportStmt.Exec(ds.Key, i, s.Source, s.Records, s.Skipped, s.Trajectories,
				s.Rows, s.MedianPoints, s.P90Points, s.MeanDuration, s.MeanPathLength,
				s.MeanTortuosity, s.MeanGyration, s.MeanConsistency, s.Error, cache.EncodeCounts(s.PointCounts))
			if err != nil {
				return fmt.Errorf("failed to insert source report %s: %w", s.Source, err)
			}
		}

		return saveSummaries(tx, ds)
	})
}

func saveSummaries(tx *sql.Tx, ds *models.Dataset) error {
	stmt, err := tx.Prepare(`
		INSERT INTO trajectory_summaries (
			dataset_key, seq, source, trajectory_id, person_id, start_us, end_us, points,
			path_length, width, height, tortuosity, gyration, heading, consistency, opened_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary insert: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, report := range ds.Sources {
		for _, t := range report.Summaries {
			_, err := stmt.Exec(ds.Key, seq, report.Source, t.TrajectoryID, t.PersonID,
				t.Start.UnixMicro(), t.End.UnixMicro(), t.Points, t.PathLength, t.Width, t.Height,
				t.Tortuosity, t.Gyration, t.Heading, t.Consistency, string(t.OpenedBy))
			if err != nil {
				return fmt.Errorf("failed to insert trajectory %d of %s: %w", t.TrajectoryID, report.Source, err)
			}
			seq++
		}
	}
	return nil
}

// GetInfo retrieves a dataset's metadata without rows
func (r *DatasetRepository) GetInfo(key string) (*models.DatasetInfo, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE key = ?`

	info, err := scanDatasetInfo(r.db.QueryRow(query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return info, nil
}

// Get retrieves a complete dataset with all rows and source reports
func (r *DatasetRepository) Get(key string) (*models.Dataset, error) {
	info, err := r.GetInfo(key)
	if err != nil {
		return nil, err
	}

	rows, err := r.ListRows(key, info.Params, -1, 0)
	if err != nil {
		return nil, err
	}

	sources, err := r.ListSourceReports(key)
	if err != nil {
		return nil, err
	}

	return &models.Dataset{DatasetInfo: *info, Rows: rows, Sources: sources}, nil
}

// List retrieves the metadata of every cached dataset, newest first
func (r *DatasetRepository) List() ([]*models.DatasetInfo, error) {
	rows, err := r.db.Query(`SELECT ` + datasetColumns + ` FROM datasets ORDER BY created_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	infos := []*models.DatasetInfo{}
	for rows.Next() {
		info, err := scanDatasetInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

// ListRows retrieves training rows in their stored order. A negative limit
// returns every row from offset.
func (r *DatasetRepository) ListRows(key string, params models.WindowParams, limit, offset int) ([]models.TrainingRow, error) {
	rows, err := r.db.Query(`
		SELECT trajectory_id, features
		FROM training_rows
		WHERE dataset_key = ?
		ORDER BY seq
		LIMIT ? OFFSET ?
	`, key, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query training rows: %w", err)
	}
	defer rows.Close()

	var result []models.TrainingRow
	for rows.Next() {
		var trajectoryID int64
		var blob []byte
		if err := rows.Scan(&trajectoryID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan training row: %w", err)
		}

		row, err := cache.DecodeRow(trajectoryID, blob, params)
		if err != nil {
			return nil, fmt.Errorf("failed to decode training row: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// ListSourceReports retrieves per-source reports in processing order
func (r *DatasetRepository) ListSourceReports(key string) ([]models.SourceReport, error) {
	rows, err := r.db.Query(`
		SELECT source, records, skipped, trajectories, row_count, median_points, p90_points,
			mean_duration_s, mean_path_length, mean_tortuosity, mean_gyration, mean_consistency,
			error, point_counts
		FROM source_reports
		WHERE dataset_key = ?
		ORDER BY position
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query source reports: %w", err)
	}
	defer rows.Close()

	reports := []models.SourceReport{}
	for rows.Next() {
		var s models.SourceReport
		var counts []byte
		err := rows.Scan(&s.Source, &s.Records, &s.Skipped, &s.Trajectories, &s.Rows,
			&s.MedianPoints, &s.P90Points, &s.MeanDuration, &s.MeanPathLength,
			&s.MeanTortuosity, &s.MeanGyration, &s.MeanConsistency, &s.Error, &counts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source report: %w", err)
		}
		if s.PointCounts, err = cache.DecodeCounts(counts); err != nil {
			return nil, fmt.Errorf("failed to decode point counts for %s: %w", s.Source, err)
		}
		reports = append(reports, s)
	}

	return reports, rows.Err()
}

// ListTrajectories retrieves trajectory summaries in processing order,
// optionally limited to one source
func (r *DatasetRepository) ListTrajectories(key string, filter models.TrajectoryFilter) ([]models.TrajectorySummary, int64, error) {
	where := "dataset_key = ?"
	args := []interface{}{key}
	if filter.Source != "" {
		where += " AND source = ?"
		args = append(args, filter.Source)
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM trajectory_summaries WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trajectories: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	rows, err := r.db.Query(`
		SELECT source, trajectory_id, person_id, start_us, end_us, points, path_length,
			width, height, tortuosity, gyration, heading, consistency, opened_by
		FROM trajectory_summaries
		WHERE `+where+`
		ORDER BY seq
		LIMIT ? OFFSET ?
	`, append(args, filter.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query trajectories: %w", err)
	}
	defer rows.Close()

	summaries := []models.TrajectorySummary{}
	for rows.Next() {
		var t models.TrajectorySummary
		var startUs, endUs int64
		var openedBy string
		err := rows.Scan(&t.Source, &t.TrajectoryID, &t.PersonID, &startUs, &endUs, &t.Points,
			&t.PathLength, &t.Width, &t.Height, &t.Tortuosity, &t.Gyration, &t.Heading,
			&t.Consistency, &openedBy)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trajectory: %w", err)
		}
		t.Start, t.End = fromMicros(startUs), fromMicros(endUs)
		t.OpenedBy = models.BoundaryKind(openedBy)
		summaries = append(summaries, t)
	}

	return summaries, total, rows.Err()
}

// Delete removes a dataset and everything stored with it
func (r *DatasetRepository) Delete(key string) error {
	exists, err := r.Exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, key)
	}

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		return deleteDataset(tx, key)
	})
}

func deleteDataset(tx *sql.Tx, key string) error {
	for _, table := range []string{"training_rows", "source_reports", "trajectory_summaries"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE dataset_key = ?", key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM datasets WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

func scanDatasetInfo(s scanner) (*models.DatasetInfo, error) {
	info := &models.DatasetInfo{}
	var thresholdNs, createdAt int64

	err := s.Scan(
		&info.Key,
		&info.Params.InputSeqLength,
		&info.Params.OutputSeqLength,
		&info.Params.NumDimensions,
		&thresholdNs,
		&info.PositionThreshold,
		&info.RowCount,
		&info.SourceCount,
		&info.ProblemCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	info.TimeThreshold = models.Duration(time.Duration(thresholdNs))
	info.CreatedAt = fromMillis(createdAt)

	return info, nil
}

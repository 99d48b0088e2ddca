package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// WriteReport writes the per-source report as CSV
func WriteReport(path string, reports []models.SourceReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&reports, f); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return f.Close()
}

// WriteRows writes the flat training-row table with its header
func WriteRows(path string, params models.WindowParams, rows []models.TrainingRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create rows file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(params.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, 1+params.FeatureCount())
	for _, row := range rows {
		values := row.Flatten()
		if len(values) != len(record) {
			return fmt.Errorf("row for trajectory %d has %d values, expected %d",
				row.TrajectoryID, len(values), len(record))
		}
		record[0] = strconv.FormatInt(row.TrajectoryID, 10)
		for i, v := range values[1:] {
			record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	return f.Close()
}

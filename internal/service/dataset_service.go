package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jengzang/trajectory-prep/internal/archive"
	"github.com/jengzang/trajectory-prep/internal/cache"
	"github.com/jengzang/trajectory-prep/internal/config"
	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/partition"
	"github.com/jengzang/trajectory-prep/internal/pipeline"
	"github.com/jengzang/trajectory-prep/internal/repository"
	"github.com/jengzang/trajectory-prep/internal/stats"
)

// ErrNoSources is returned when the data directory holds no position archives
var ErrNoSources = errors.New("no position archives found")

// DatasetSummary is a cached dataset's metadata with per-source reports and
// the distribution of trajectory lengths across all sources
type DatasetSummary struct {
	models.DatasetInfo
	Sources          []models.SourceReport `json:"sources"`
	ProblemSources   []string              `json:"problem_sources"`
	TrajectoryPoints stats.Summary         `json:"trajectory_points"`
}

// PartitionBatch is one batch of a partition in row-major form
type PartitionBatch struct {
	Partition string      `json:"partition"`
	Batch     int         `json:"batch"`
	Size      int         `json:"size"`
	Batches   int         `json:"batches"`
	Rows      int         `json:"rows"` // Rows in the whole partition
	X         [][]float64 `json:"x"`    // All x inputs then all y inputs per row
	Y         [][]float64 `json:"y"`    // One (x, y) pair per output step
}

// DatasetService prepares datasets and serves them from the cache
type DatasetService struct {
	repo *repository.DatasetRepository
	cfg  *config.Config

	mu     sync.Mutex
	splits map[string]*partition.Split
}

// NewDatasetService creates a new dataset service
func NewDatasetService(repo *repository.DatasetRepository, cfg *config.Config) *DatasetService {
	return &DatasetService{
		repo:   repo,
		cfg:    cfg,
		splits: make(map[string]*partition.Split),
	}
}

// Resolve discovers and extracts the configured archives
func (s *DatasetService) Resolve() ([]models.Source, error) {
	catalog := &archive.Catalog{
		Dir:    s.cfg.DataDir,
		Prefix: s.cfg.ArchivePrefix,
		Suffix: s.cfg.ArchiveSuffix,
		Limit:  s.cfg.FileCount,
	}

	sources, err := catalog.Sources()
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSources, s.cfg.DataDir)
	}
	return sources, nil
}

// Prepare resolves the sources and builds or loads their dataset. The
// boolean reports whether the dataset came from the cache.
func (s *DatasetService) Prepare(ctx context.Context, force bool, progress pipeline.ProgressFunc) (*models.Dataset, bool, error) {
	sources, err := s.Resolve()
	if err != nil {
		return nil, false, err
	}
	return s.PrepareSources(ctx, sources, force, progress)
}

// PrepareSources builds the dataset for sources unless one with the same
// cache key exists and force is false
func (s *DatasetService) PrepareSources(ctx context.Context, sources []models.Source, force bool, progress pipeline.ProgressFunc) (*models.Dataset, bool, error) {
	params := s.cfg.WindowParams()
	thresholds := s.cfg.Thresholds()
	key := cache.Key(params, thresholds, sources)

	if !force {
		exists, err := s.repo.Exists(key)
		if err != nil {
			return nil, false, err
		}
		if exists {
			log.Printf("[Dataset] Cache hit for %s", key)
			ds, err := s.repo.Get(key)
			if err != nil {
				return nil, false, fmt.Errorf("failed to load cached dataset: %w", err)
			}
			return ds, true, nil
		}
	}

	processor := pipeline.NewProcessor(thresholds, params, s.cfg.Workers)
	processor.Progress = progress

	result, err := processor.Process(ctx, sources)
	if err != nil {
		return nil, false, err
	}

	ds := &models.Dataset{
		DatasetInfo: models.DatasetInfo{
			Key:               key,
			Params:            params,
			TimeThreshold:     models.Duration(thresholds.MaxTimeGap),
			PositionThreshold: thresholds.MaxDisplacement,
		},
		Rows:    result.Rows,
		Sources: result.Reports,
	}
	if err := s.repo.Save(ds); err != nil {
		return nil, false, fmt.Errorf("failed to cache dataset: %w", err)
	}

	s.mu.Lock()
	delete(s.splits, key)
	s.mu.Unlock()

	log.Printf("[Dataset] Cached %s: %d rows from %d sources", key, ds.RowCount, ds.SourceCount)
	return ds, false, nil
}

// List returns every cached dataset
func (s *DatasetService) List() ([]*models.DatasetInfo, error) {
	return s.repo.List()
}

// Get returns a dataset summary without rows
func (s *DatasetService) Get(key string) (*DatasetSummary, error) {
	info, err := s.repo.GetInfo(key)
	if err != nil {
		return nil, err
	}
	reports, err := s.repo.ListSourceReports(key)
	if err != nil {
		return nil, err
	}

	summary := &DatasetSummary{DatasetInfo: *info, Sources: reports, ProblemSources: []string{}}
	var counts []int
	for _, r := range reports {
		if r.Failed() {
			summary.ProblemSources = append(summary.ProblemSources, r.Source)
		}
		counts = append(counts, r.PointCounts...)
	}
	summary.TrajectoryPoints = stats.Summarize(stats.Ints(counts))

	return summary, nil
}

// Problems returns the sources that were skipped while building a dataset
func (s *DatasetService) Problems(key string) ([]string, error) {
	summary, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	return summary.ProblemSources, nil
}

// Rows returns one page of the flat training-row table
func (s *DatasetService) Rows(key string, filter models.RowFilter) (*models.RowsResponse, error) {
	filter.Normalize()

	info, err := s.repo.GetInfo(key)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListRows(key, info.Params, filter.PageSize, (filter.Page-1)*filter.PageSize)
	if err != nil {
		return nil, err
	}

	data := make([][]float64, len(rows))
	for i, r := range rows {
		data[i] = r.Flatten()
	}

	total := int64(info.RowCount)
	return &models.RowsResponse{
		Columns:    info.Params.Columns(),
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize)),
	}, nil
}

// Trajectories returns one page of per-trajectory summaries
func (s *DatasetService) Trajectories(key string, filter models.TrajectoryFilter) (*models.TrajectoriesResponse, error) {
	filter.Normalize()

	if _, err := s.repo.GetInfo(key); err != nil {
		return nil, err
	}

	summaries, total, err := s.repo.ListTrajectories(key, filter)
	if err != nil {
		return nil, err
	}

	return &models.TrajectoriesResponse{
		Data:       summaries,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize)),
	}, nil
}

// Split partitions a cached dataset with the configured fractions and seed.
// Splits are kept in memory per dataset.
func (s *DatasetService) Split(key string) (*partition.Split, error) {
	s.mu.Lock()
	split, ok := s.splits[key]
	s.mu.Unlock()
	if ok {
		return split, nil
	}

	ds, err := s.repo.Get(key)
	if err != nil {
		return nil, err
	}

	split, err = partition.SplitRows(ds.Rows, ds.Params, s.cfg.Fractions(), s.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to partition dataset: %w", err)
	}

	s.mu.Lock()
	s.splits[key] = split
	s.mu.Unlock()

	return split, nil
}

// Batch returns one batch of a named partition
func (s *DatasetService) Batch(key, name string, batch, size int) (*PartitionBatch, error) {
	split, err := s.Split(key)
	if err != nil {
		return nil, err
	}
	p, err := split.Partition(name)
	if err != nil {
		return nil, err
	}

	x, y, err := p.NextBatch(batch, size)
	if err != nil {
		return nil, err
	}

	return &PartitionBatch{
		Partition: name,
		Batch:     batch,
		Size:      size,
		Batches:   p.Batches(size),
		Rows:      p.Rows,
		X:         rowsOf(x.RawMatrix().Data, x.RawMatrix().Cols),
		Y:         rowsOf(y.RawMatrix().Data, y.RawMatrix().Cols),
	}, nil
}

// Delete removes a cached dataset
func (s *DatasetService) Delete(key string) error {
	if err := s.repo.Delete(key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.splits, key)
	s.mu.Unlock()
	return nil
}

func rowsOf(data []float64, cols int) [][]float64 {
	out := make([][]float64, 0, len(data)/cols)
	for i := 0; i+cols <= len(data); i += cols {
		out = append(out, data[i:i+cols])
	}
	return out
}

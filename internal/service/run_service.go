package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/repository"
)

// ErrRunInProgress is returned when a preparation run is already active
var ErrRunInProgress = errors.New("a preparation run is already in progress")

// RunService starts preparation runs in the background and tracks them
type RunService struct {
	repo     *repository.RunRepository
	datasets *DatasetService

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active bool
	wg     sync.WaitGroup
}

// NewRunService creates a new run service
func NewRunService(repo *repository.RunRepository, datasets *DatasetService) *RunService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RunService{
		repo:     repo,
		datasets: datasets,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RecoverInterrupted fails runs that a previous process left unfinished
func (s *RunService) RecoverInterrupted() error {
	n, err := s.repo.FailInterrupted()
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[Runs] Marked %d interrupted runs as failed", n)
	}
	return nil
}

// CreateRun records a new run and starts it in the background. Only one run
// may be active at a time.
func (s *RunService) CreateRun(force bool, createdBy string) (*models.PrepareRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil, ErrRunInProgress
	}

	run := &models.PrepareRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusPending,
		Force:     force,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.active = true
	s.wg.Add(1)
	go s.execute(run.ID, force)

	return run, nil
}

func (s *RunService) execute(id string, force bool) {
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	log.Printf("[Runs] Starting run %s (force: %v)", id, force)

	sources, err := s.datasets.Resolve()
	if err != nil {
		s.fail(id, err)
		return
	}

	total := len(sources)
	if err := s.repo.MarkAsRunning(id, total); err != nil {
		log.Printf("[Runs] %v", err)
	}

	progress := func(processed, failed, total int) {
		percent := float64(processed) / float64(total) * 100
		if err := s.repo.UpdateProgress(id, processed, failed, percent); err != nil {
			log.Printf("[Runs] %v", err)
		}
	}

	ds, cached, err := s.datasets.PrepareSources(s.ctx, sources, force, progress)
	if err != nil {
		s.fail(id, err)
		return
	}

	if cached {
		progress(total, ds.ProblemCount, total)
	}
	if err := s.repo.MarkAsCompleted(id, ds.Key, cached); err != nil {
		log.Printf("[Runs] %v", err)
		return
	}

	log.Printf("[Runs] Run %s completed: dataset %s (cached: %v)", id, ds.Key, cached)
}

func (s *RunService) fail(id string, err error) {
	log.Printf("[Runs] Run %s failed: %v", id, err)
	if markErr := s.repo.MarkAsFailed(id, err.Error()); markErr != nil {
		log.Printf("[Runs] %v", markErr)
	}
}

// GetRun retrieves a run by ID
func (s *RunService) GetRun(id string) (*models.PrepareRun, error) {
	return s.repo.GetByID(id)
}

// ListRuns retrieves runs with optional filters
func (s *RunService) ListRuns(filter models.RunFilter) ([]*models.PrepareRun, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(filter)
}

// Wait blocks until the active run, if any, has finished
func (s *RunService) Wait() {
	s.wg.Wait()
}

// Close cancels the active run and waits for it to stop
func (s *RunService) Close() {
	s.cancel()
	s.wg.Wait()
}

package models

import "time"

// PrepareRun tracks one asynchronous dataset preparation
type PrepareRun struct {
	ID     string `json:"id" db:"id"`
	Status string `json:"status" db:"status"` // pending, running, completed, failed
	Force  bool   `json:"force" db:"force"`

	// Progress
	TotalSources     int     `json:"total_sources" db:"total_sources"`
	ProcessedSources int     `json:"processed_sources" db:"processed_sources"`
	FailedSources    int     `json:"failed_sources" db:"failed_sources"`
	ProgressPercent  float64 `json:"progress_percent" db:"progress_percent"`

	// Results
	DatasetKey   string `json:"dataset_key,omitempty" db:"dataset_key"`
	Cached       bool   `json:"cached" db:"cached"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	// Metadata
	CreatedBy   string     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// RunStatus constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

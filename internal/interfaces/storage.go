package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// JobListOptions controls job history queries
type JobListOptions struct {
	Status  string
	BatchID string
	Limit   int
	Offset  int
}

// JobStorage persists extraction job history
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ExtractionJob) error
	GetJob(ctx context.Context, jobID string) (*models.ExtractionJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.ExtractionJob, error)
	DeleteJob(ctx context.Context, jobID string) error
	CountJobs(ctx context.Context) (int, error)

	// DeleteJobsOlderThan removes history entries whose work directories have
	// been pruned by retention. Returns the number of records removed.
	DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage

	// DB returns the underlying database connection
	DB() interface{}

	Close() error
}

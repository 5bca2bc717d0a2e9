package models

import (
	"path/filepath"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of an extraction job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ExtractionJob is the persisted record of one pipeline run.
// One job owns exactly one working directory; the directory and its artifacts
// are the durable output, this record is the history entry served to the UI.
type ExtractionJob struct {
	ID           string     `json:"id"`
	BatchID      string     `json:"batch_id,omitempty"` // Set when the job ran as part of a batch
	SourceName   string     `json:"source_name"`        // Original upload filename
	WorkDir      string     `json:"work_dir"`
	Status       JobStatus  `json:"status"`
	Error        string     `json:"error,omitempty"`
	DownloadPath string     `json:"download_path,omitempty"` // <stem>_extracted_text.txt inside WorkDir
	PageCount    int        `json:"page_count,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewExtractionJob creates a pending job for an uploaded PDF
func NewExtractionJob(id, sourceName, workDir string) *ExtractionJob {
	return &ExtractionJob{
		ID:         id,
		SourceName: sourceName,
		WorkDir:    workDir,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
	}
}

// Stem returns the source filename without directory or extension
func (j *ExtractionJob) Stem() string {
	return FileStem(j.SourceName)
}

// MarkRunning transitions the job to running and stamps the start time
func (j *ExtractionJob) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// MarkCompleted transitions the job to completed and stamps the finish time
func (j *ExtractionJob) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
}

// MarkFailed transitions the job to failed with the user-facing message
func (j *ExtractionJob) MarkFailed(message string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = message
	j.CompletedAt = &now
}

// FileStem returns the base name of a path without its extension
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

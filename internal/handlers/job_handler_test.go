package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.ExtractionJob
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: make(map[string]*models.ExtractionJob)}
}

func (m *memoryJobStore) SaveJob(ctx context.Context, job *models.ExtractionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobStore) GetJob(ctx context.Context, jobID string) (*models.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobStore) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ExtractionJob
	for _, job := range m.jobs {
		copied := *job
		result = append(result, &copied)
	}
	return result, nil
}

func (m *memoryJobStore) DeleteJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	delete(m.jobs, jobID)
	return nil
}

func (m *memoryJobStore) CountJobs(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

func (m *memoryJobStore) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type fakeExportService struct{}

func (f *fakeExportService) MarkdownToHTML(text string) (string, error) {
	return "<p>" + text + "</p>", nil
}

func (f *fakeExportService) TextToPDF(text, title string) ([]byte, error) {
	return []byte("%PDF-1.4 " + title), nil
}

func newTestJobHandler(t *testing.T) (*JobHandler, *memoryJobStore, *common.Config) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Workspace.Dir = t.TempDir()
	store := newMemoryJobStore()
	return NewJobHandler(cfg, store, &fakeExportService{}, arbor.NewLogger()), store, cfg
}

func TestListJobsHandler(t *testing.T) {
	handler, store, _ := newTestJobHandler(t)
	require.NoError(t, store.SaveJob(context.Background(), models.NewExtractionJob("job_1", "a.pdf", "/ws/job_1")))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ListJobsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []*models.ExtractionJob `json:"jobs"`
		Count int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "job_1", resp.Jobs[0].ID)
}

func TestGetJobHandler(t *testing.T) {
	handler, store, _ := newTestJobHandler(t)
	require.NoError(t, store.SaveJob(context.Background(), models.NewExtractionJob("job_2", "b.pdf", "/ws/job_2")))

	rec := httptest.NewRecorder()
	handler.GetJobHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_2", nil), "job_2")
	require.Equal(t, http.StatusOK, rec.Code)

	var job models.ExtractionJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "b.pdf", job.SourceName)

	rec = httptest.NewRecorder()
	handler.GetJobHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadJobHandler(t *testing.T) {
	handler, store, cfg := newTestJobHandler(t)

	workDir := filepath.Join(cfg.Workspace.Dir, "job_3")
	require.NoError(t, os.MkdirAll(workDir, 0755))
	downloadPath := filepath.Join(workDir, "report_extracted_text.txt")
	require.NoError(t, os.WriteFile(downloadPath, []byte("extracted content"), 0644))

	job := models.NewExtractionJob("job_3", "report.pdf", workDir)
	job.DownloadPath = downloadPath
	job.MarkCompleted()
	require.NoError(t, store.SaveJob(context.Background(), job))

	rec := httptest.NewRecorder()
	handler.DownloadJobHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_3/download", nil), "job_3")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "extracted content", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_extracted_text.txt")
}

func TestDownloadJobHandler_NoArtifact(t *testing.T) {
	handler, store, _ := newTestJobHandler(t)

	job := models.NewExtractionJob("job_4", "x.pdf", "/ws/job_4")
	job.MarkFailed("命令执行失败: boom")
	require.NoError(t, store.SaveJob(context.Background(), job))

	rec := httptest.NewRecorder()
	handler.DownloadJobHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_4/download", nil), "job_4")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportJobPDFHandler(t *testing.T) {
	handler, store, cfg := newTestJobHandler(t)

	workDir := filepath.Join(cfg.Workspace.Dir, "job_5")
	require.NoError(t, os.MkdirAll(workDir, 0755))
	downloadPath := filepath.Join(workDir, "doc_extracted_text.txt")
	require.NoError(t, os.WriteFile(downloadPath, []byte("# Title"), 0644))

	job := models.NewExtractionJob("job_5", "doc.pdf", workDir)
	job.DownloadPath = downloadPath
	require.NoError(t, store.SaveJob(context.Background(), job))

	rec := httptest.NewRecorder()
	handler.ExportJobPDFHandler(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job_5/export/pdf", nil), "job_5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "%PDF")
}

func TestDeleteJobHandler_RemovesWorkDir(t *testing.T) {
	handler, store, cfg := newTestJobHandler(t)

	workDir := filepath.Join(cfg.Workspace.Dir, "job_6")
	require.NoError(t, os.MkdirAll(workDir, 0755))
	require.NoError(t, store.SaveJob(context.Background(), models.NewExtractionJob("job_6", "z.pdf", workDir)))

	rec := httptest.NewRecorder()
	handler.DeleteJobHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/jobs/job_6", nil), "job_6")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := store.GetJob(context.Background(), "job_6")
	assert.Error(t, err)
	_, err = os.Stat(workDir)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteJobHandler_IgnoresDirOutsideWorkspace(t *testing.T) {
	handler, store, _ := newTestJobHandler(t)

	outside := t.TempDir()
	require.NoError(t, store.SaveJob(context.Background(), models.NewExtractionJob("job_7", "z.pdf", outside)))

	rec := httptest.NewRecorder()
	handler.DeleteJobHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/jobs/job_7", nil), "job_7")
	require.Equal(t, http.StatusOK, rec.Code)

	// Directory outside the workspace root stays untouched
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestBatchArchiveHandler(t *testing.T) {
	handler, _, cfg := newTestJobHandler(t)

	batchDir := filepath.Join(cfg.Workspace.Dir, "batch_1700000000")
	require.NoError(t, os.MkdirAll(batchDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(batchDir, cfg.Batch.ArchiveName), []byte("PK archive"), 0644))

	rec := httptest.NewRecorder()
	handler.BatchArchiveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/batches/batch_1700000000/archive", nil), "batch_1700000000")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
}

func TestBatchArchiveHandler_RejectsBadID(t *testing.T) {
	handler, _, _ := newTestJobHandler(t)

	for _, id := range []string{"../etc", "batch_abc", "batch_1;rm", "job_1700000000"} {
		rec := httptest.NewRecorder()
		handler.BatchArchiveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/batches/x/archive", nil), id)
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestBatchArchiveHandler_AcceptsSuffixedID(t *testing.T) {
	handler, _, cfg := newTestJobHandler(t)

	batchDir := filepath.Join(cfg.Workspace.Dir, "batch_1700000000_2")
	require.NoError(t, os.MkdirAll(batchDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(batchDir, cfg.Batch.ArchiveName), []byte("PK archive"), 0644))

	rec := httptest.NewRecorder()
	handler.BatchArchiveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/batches/batch_1700000000_2/archive", nil), "batch_1700000000_2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

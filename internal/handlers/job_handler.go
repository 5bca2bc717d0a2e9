package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// batchIDPattern matches the batch directory names the batch service creates.
// Anything else is rejected before it can reach the filesystem.
var batchIDPattern = regexp.MustCompile(`^batch_\d+(_\d+)?$`)

// JobHandler serves the job history API
type JobHandler struct {
	config *common.Config
	jobs   interfaces.JobStorage
	export interfaces.ExportService
	logger arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(config *common.Config, jobs interfaces.JobStorage, export interfaces.ExportService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		config: config,
		jobs:   jobs,
		export: export,
		logger: logger,
	}
}

// ListJobsHandler handles GET /api/jobs with status, batch_id, limit and
// offset query parameters. Results are newest first.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.JobListOptions{
		Status:  r.URL.Query().Get("status"),
		BatchID: r.URL.Query().Get("batch_id"),
		Limit:   50,
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	jobs, err := h.jobs.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	count, err := h.jobs.CountJobs(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count jobs")
		count = len(jobs)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": count,
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DeleteJobHandler handles DELETE /api/jobs/{id}. The job's working
// directory is removed along with the record when it sits inside the
// configured workspace.
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), jobID); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	if dir := h.workspaceScopedDir(job.WorkDir); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove job directory")
		}
	}

	WriteSuccess(w, "Job deleted")
}

// DownloadJobHandler handles GET /api/jobs/{id}/download, serving the
// extracted text artifact.
func (h *JobHandler) DownloadJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.DownloadPath == "" {
		WriteError(w, http.StatusNotFound, "Job has no download artifact")
		return
	}
	if _, err := os.Stat(job.DownloadPath); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Download artifact missing on disk")
		WriteError(w, http.StatusNotFound, "Download artifact not found")
		return
	}

	filename := job.Stem() + "_extracted_text.txt"
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	http.ServeFile(w, r, job.DownloadPath)
}

// ExportJobPDFHandler handles GET /api/jobs/{id}/export/pdf, rendering the
// extracted text back into a downloadable PDF.
func (h *JobHandler) ExportJobPDFHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.DownloadPath == "" {
		WriteError(w, http.StatusNotFound, "Job has no extracted text")
		return
	}

	content, err := os.ReadFile(job.DownloadPath)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to read extracted text")
		WriteError(w, http.StatusNotFound, "Extracted text not found")
		return
	}

	pdfBytes, err := h.export.TextToPDF(string(content), job.Stem())
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to render PDF export")
		WriteError(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+job.Stem()+".pdf\"")
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// BatchArchiveHandler handles GET /api/batches/{id}/archive, serving the
// assembled text archive of a batch run.
func (h *JobHandler) BatchArchiveHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if !batchIDPattern.MatchString(batchID) {
		WriteError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	archiveName := h.config.Batch.ArchiveName
	if archiveName == "" {
		archiveName = "extracted_texts.zip"
	}
	archivePath := filepath.Join(h.config.Workspace.Dir, batchID, archiveName)
	if _, err := os.Stat(archivePath); err != nil {
		WriteError(w, http.StatusNotFound, "Archive not found")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+archiveName+"\"")
	http.ServeFile(w, r, archivePath)
}

// workspaceScopedDir returns dir only when it resolves inside the configured
// workspace root, guarding deletes against records pointing elsewhere.
func (h *JobHandler) workspaceScopedDir(dir string) string {
	if dir == "" {
		return ""
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	absRoot, err := filepath.Abs(h.config.Workspace.Dir)
	if err != nil {
		return ""
	}
	if absDir == absRoot {
		return ""
	}
	if !strings.HasPrefix(absDir, absRoot+string(filepath.Separator)) {
		return ""
	}
	return absDir
}

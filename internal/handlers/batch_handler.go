package handlers

import (
	"mime/multipart"
	"net/http"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// BatchHandler handles multi-PDF batch extraction requests
type BatchHandler struct {
	batch  interfaces.BatchService
	logger arbor.ILogger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batch interfaces.BatchService, logger arbor.ILogger) *BatchHandler {
	return &BatchHandler{
		batch:  batch,
		logger: logger,
	}
}

type batchResponse struct {
	BatchID    string `json:"batch_id,omitempty"`
	Message    string `json:"message"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// BatchProcessHandler handles POST /api/batch_process with repeated "files"
// uploads. Per-item failures do not fail the batch; the archive carries the
// failure message in the failed item's text file.
func (h *BatchHandler) BatchProcessHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "请上传PDF文件")
		return
	}

	uploadDir, err := os.MkdirTemp("", "scribe_batch_upload_")
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create upload directory")
		WriteError(w, http.StatusInternalServerError, "Failed to store uploads")
		return
	}
	defer os.RemoveAll(uploadDir)

	inputs := make([]interfaces.BatchInput, 0, len(headers))
	for _, fh := range headers {
		if !isPDFUpload(fh) {
			WriteError(w, http.StatusBadRequest, "请上传PDF文件")
			return
		}
		// Uploads keep their client filename, so same-named files need
		// their own subdirectory to avoid overwriting each other.
		fileDir, err := os.MkdirTemp(uploadDir, "f")
		if err != nil {
			h.logger.Error().Err(err).Str("file", fh.Filename).Msg("Failed to create upload directory")
			WriteError(w, http.StatusInternalServerError, "Failed to store uploads")
			return
		}
		path, err := saveUploadedFile(fileDir, fh)
		if err != nil {
			h.logger.Error().Err(err).Str("file", fh.Filename).Msg("Failed to save uploaded PDF")
			WriteError(w, http.StatusInternalServerError, "Failed to store uploads")
			return
		}
		inputs = append(inputs, interfaces.BatchInput{
			Path:       path,
			SourceName: fh.Filename,
		})
	}

	h.logger.Info().
		Int("files", len(inputs)).
		Msg("Processing PDF batch")

	result := h.batch.ProcessBatch(r.Context(), inputs)

	resp := batchResponse{
		BatchID: result.BatchID,
		Message: result.Message,
	}
	if result.ArchivePath != "" {
		resp.ArchiveURL = "/api/batches/" + result.BatchID + "/archive"
	}

	WriteJSON(w, http.StatusOK, resp)
}

package handlers

import (
	"net/http"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// ExtractHandler handles single-PDF extraction requests
type ExtractHandler struct {
	extract interfaces.ExtractService
	export  interfaces.ExportService
	logger  arbor.ILogger
}

// NewExtractHandler creates a new extract handler
func NewExtractHandler(extract interfaces.ExtractService, export interfaces.ExportService, logger arbor.ILogger) *ExtractHandler {
	return &ExtractHandler{
		extract: extract,
		export:  export,
		logger:  logger,
	}
}

type processResponse struct {
	JobID       string               `json:"job_id,omitempty"`
	Log         string               `json:"log"`
	Text        string               `json:"text"`
	TextHTML    string               `json:"text_html,omitempty"`
	PreviewHTML string               `json:"preview_html"`
	Metadata    []models.MetadataRow `json:"metadata"`
	DownloadURL string               `json:"download_url,omitempty"`
}

// ProcessHandler handles POST /api/process with a single "file" upload.
// Pipeline failures still return 200; the failure message rides in the log
// field so the UI can show it in the log tab.
func (h *ExtractHandler) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "请上传PDF文件")
		return
	}
	file.Close()

	if !isPDFUpload(header) {
		WriteError(w, http.StatusBadRequest, "请上传PDF文件")
		return
	}

	uploadDir, err := os.MkdirTemp("", "scribe_upload_")
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create upload directory")
		WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer os.RemoveAll(uploadDir)

	pdfPath, err := saveUploadedFile(uploadDir, header)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to save uploaded PDF")
		WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	h.logger.Info().
		Str("file", header.Filename).
		Msg("Processing uploaded PDF")

	result := h.extract.ProcessPDF(r.Context(), pdfPath, header.Filename)

	resp := processResponse{
		JobID:       result.JobID,
		Log:         result.Log,
		Text:        result.Text,
		PreviewHTML: result.PreviewHTML,
		Metadata:    result.Metadata,
	}
	if !result.Failed() {
		resp.DownloadURL = "/api/jobs/" + result.JobID + "/download"

		// Extraction output is markdown-ish; render it for the text tab
		if textHTML, err := h.export.MarkdownToHTML(result.Text); err == nil {
			resp.TextHTML = textHTML
		} else {
			h.logger.Warn().Err(err).Msg("Failed to render extracted text as HTML")
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

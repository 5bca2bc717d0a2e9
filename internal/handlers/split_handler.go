package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// SplitHandler handles PDF page-splitting requests
type SplitHandler struct {
	config *common.Config
	split  interfaces.SplitService
	logger arbor.ILogger
}

// NewSplitHandler creates a new split handler
func NewSplitHandler(config *common.Config, split interfaces.SplitService, logger arbor.ILogger) *SplitHandler {
	return &SplitHandler{
		config: config,
		split:  split,
		logger: logger,
	}
}

type splitResponse struct {
	PageCount int      `json:"page_count"`
	Files     []string `json:"files"`
	Dir       string   `json:"dir"`
}

// SplitPDFHandler handles POST /api/split with a single "file" upload. The
// pages are written into a split directory under the workspace.
func (h *SplitHandler) SplitPDFHandler(w http.ResponseWriter, r *http.Request) {
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

	uploadDir, err := os.MkdirTemp("", "scribe_split_upload_")
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

	if err := os.MkdirAll(h.config.Workspace.Dir, 0755); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create workspace directory")
		WriteError(w, http.StatusInternalServerError, "Failed to prepare output directory")
		return
	}
	outDir, err := os.MkdirTemp(h.config.Workspace.Dir, "split_")
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create split output directory")
		WriteError(w, http.StatusInternalServerError, "Failed to prepare output directory")
		return
	}

	pages, err := h.split.SplitPDF(r.Context(), pdfPath, outDir)
	if err != nil {
		h.logger.Warn().Err(err).Str("file", header.Filename).Msg("PDF split failed")
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	files := make([]string, len(pages))
	for i, p := range pages {
		files[i] = filepath.Base(p)
	}

	h.logger.Info().
		Str("file", header.Filename).
		Int("pages", len(pages)).
		Msg("PDF split complete")

	WriteJSON(w, http.StatusOK, splitResponse{
		PageCount: len(pages),
		Files:     files,
		Dir:       outDir,
	})
}

package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
)

// PageHandler serves the HTML pages of the web UI
type PageHandler struct {
	logger      arbor.ILogger
	pagesDir    string
	clientDebug bool
}

// NewPageHandler creates a new page handler
func NewPageHandler(logger arbor.ILogger, clientDebug bool) *PageHandler {
	pagesDir, err := findPagesDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Pages directory not found, UI pages will be unavailable")
	} else {
		logger.Debug().Str("dir", pagesDir).Msg("Serving UI pages")
	}

	return &PageHandler{
		logger:      logger,
		pagesDir:    pagesDir,
		clientDebug: clientDebug,
	}
}

// findPagesDir locates the pages directory relative to the working directory
// or the executable, whichever exists.
func findPagesDir() (string, error) {
	candidates := []string{"pages"}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "pages"))
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return dir, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("pages directory not found")
}

// ServePage returns a handler that renders the named page template
func (h *PageHandler) ServePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.pagesDir == "" {
			http.Error(w, "UI pages not available", http.StatusInternalServerError)
			return
		}

		tmpl, err := template.ParseFiles(filepath.Join(h.pagesDir, name))
		if err != nil {
			h.logger.Error().Err(err).Str("page", name).Msg("Failed to parse page template")
			http.Error(w, "Failed to load page", http.StatusInternalServerError)
			return
		}

		data := map[string]interface{}{
			"Version":     common.GetVersion(),
			"ClientDebug": h.clientDebug,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			h.logger.Error().Err(err).Str("page", name).Msg("Failed to render page template")
		}
	}
}

// StaticFileHandler serves static assets from the pages/static directory
func (h *PageHandler) StaticFileHandler() http.Handler {
	if h.pagesDir == "" {
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(h.pagesDir, "static"))))
}

package split

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Service splits multi-page PDFs into per-page files and answers structural
// questions about uploads before the pipeline runs.
type Service struct {
	logger arbor.ILogger
}

// Compile-time interface assertions
var (
	_ interfaces.SplitService = (*Service)(nil)
	_ interfaces.PDFInspector = (*Service)(nil)
)

// NewService creates a split service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Inspect reads page count and encryption state without touching content
func (s *Service) Inspect(pdfPath string) (*interfaces.PDFInfo, error) {
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	return &interfaces.PDFInfo{
		PageCount: pdfCtx.PageCount,
		Encrypted: pdfCtx.Encrypt != nil,
	}, nil
}

// PageCount reports the number of pages without splitting
func (s *Service) PageCount(pdfPath string) (int, error) {
	info, err := s.Inspect(pdfPath)
	if err != nil {
		return 0, err
	}
	return info.PageCount, nil
}

var pageSuffixRe = regexp.MustCompile(`_(\d+)(?:-\d+)?\.pdf$`)

// SplitPDF writes one PDF per page into outDir, named <stem>_page_<n>.pdf,
// and returns their paths in page order. A single-page input is copied into
// outDir unchanged.
func (s *Service) SplitPDF(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	info, err := s.Inspect(pdfPath)
	if err != nil {
		return nil, err
	}
	if info.Encrypted {
		return nil, fmt.Errorf("cannot split encrypted PDF: %s", filepath.Base(pdfPath))
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	stem := models.FileStem(pdfPath)

	if info.PageCount <= 1 {
		dst := filepath.Join(outDir, stem+".pdf")
		if err := copyFile(pdfPath, dst); err != nil {
			return nil, err
		}
		s.logger.Debug().Str("pdf", filepath.Base(pdfPath)).Msg("Single page, copied as-is")
		return []string{dst}, nil
	}

	// pdfcpu names split output by start page; rename into the
	// <stem>_page_<n>.pdf convention afterwards
	tmpDir, err := os.MkdirTemp(outDir, "split_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.SplitFile(pdfPath, tmpDir, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read split output: %w", err)
	}

	type pageFile struct {
		page int
		path string
	}
	var pages []pageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageSuffixRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, pageFile{page: page, path: filepath.Join(tmpDir, entry.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })

	if len(pages) == 0 {
		return nil, fmt.Errorf("split produced no page files for %s", filepath.Base(pdfPath))
	}

	var out []string
	for _, pf := range pages {
		dst := filepath.Join(outDir, fmt.Sprintf("%s_page_%d.pdf", stem, pf.page))
		if err := os.Rename(pf.path, dst); err != nil {
			return nil, fmt.Errorf("failed to move page file: %w", err)
		}
		out = append(out, dst)
	}

	s.logger.Info().
		Str("pdf", filepath.Base(pdfPath)).
		Int("pages", len(out)).
		Msg("Split PDF into pages")

	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	return out.Sync()
}

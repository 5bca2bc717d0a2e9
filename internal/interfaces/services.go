package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// ExtractService runs the full single-PDF flow: workspace directory, pipeline
// invocation, result parsing, preview rendering and the download artifact.
// Failures never surface as errors; the returned result carries the
// user-facing message in its Log field.
type ExtractService interface {
	ProcessPDF(ctx context.Context, pdfPath, sourceName string) *models.ExtractionResult

	// ProcessBatchItem behaves like ProcessPDF but tags the job with the
	// batch it ran under.
	ProcessBatchItem(ctx context.Context, pdfPath, sourceName, batchID string) *models.ExtractionResult
}

// BatchInput identifies one uploaded PDF within a batch
type BatchInput struct {
	Path       string
	SourceName string
}

// BatchService processes many PDFs and assembles the text archive
type BatchService interface {
	ProcessBatch(ctx context.Context, inputs []BatchInput) *models.BatchResult
}

// PDFInfo describes an uploaded PDF before the pipeline runs
type PDFInfo struct {
	PageCount int
	Encrypted bool
}

// PDFInspector reads structural facts about a PDF without extracting content
type PDFInspector interface {
	Inspect(pdfPath string) (*PDFInfo, error)
}

// SplitService splits a multi-page PDF into single-page PDFs
type SplitService interface {
	// SplitPDF writes one PDF per page into outDir and returns their paths in
	// page order. Single-page inputs produce a single copy.
	SplitPDF(ctx context.Context, pdfPath, outDir string) ([]string, error)

	// PageCount reports the number of pages without splitting
	PageCount(pdfPath string) (int, error)
}

// ExportService renders extracted text for download and display
type ExportService interface {
	// MarkdownToHTML renders extracted text (markdown-ish) for the UI text tab
	MarkdownToHTML(text string) (string, error)

	// TextToPDF renders extracted text to a downloadable PDF
	TextToPDF(text, title string) ([]byte, error)
}

package interfaces

import (
	"context"
	"fmt"
)

// RunResult captures the output of one external tool invocation
type RunResult struct {
	Stdout string
	Stderr string
}

// PipelineRunner is the single seam between this application and the external
// olmOCR tools. Both calls block until the subprocess exits.
type PipelineRunner interface {
	// Extract runs the extraction pipeline against one PDF, writing results
	// under jobDir. A non-zero exit returns a *ToolExecutionError.
	Extract(ctx context.Context, jobDir, pdfPath string) (*RunResult, error)

	// RenderPreview runs the preview tool for one output file with workDir as
	// the working directory, so preview artifacts land inside the job's own
	// directory tree.
	RenderPreview(ctx context.Context, outputPath, workDir string) (*RunResult, error)
}

// ToolExecutionError reports a tool that ran but exited non-zero
type ToolExecutionError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

package extract

import "fmt"

// MissingOutputError reports a pipeline run that exited cleanly but left
// nothing usable under <job_dir>/results.
type MissingOutputError struct {
	ResultsDir string
	DirExists  bool
}

func (e *MissingOutputError) Error() string {
	if !e.DirExists {
		return fmt.Sprintf("results directory not created: %s", e.ResultsDir)
	}
	return fmt.Sprintf("no output files in %s", e.ResultsDir)
}

// EmptyOutputError reports an output file with no content
type EmptyOutputError struct {
	Path string
}

func (e *EmptyOutputError) Error() string {
	return fmt.Sprintf("output file is empty: %s", e.Path)
}

const (
	previewStageRender = "render"
	previewStageRead   = "read"
)

// PreviewError reports a preview failure. Previews are best-effort, so these
// are appended to the job log rather than failing the job.
type PreviewError struct {
	Stage string
	Err   error
}

func (e *PreviewError) Error() string {
	return fmt.Sprintf("preview %s failed: %v", e.Stage, e.Err)
}

func (e *PreviewError) Unwrap() error {
	return e.Err
}

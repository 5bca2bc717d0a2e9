package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Runner shells out to the external olmOCR tools. It is the only place in the
// codebase that launches subprocesses.
type Runner struct {
	extractCmd []string
	previewCmd []string
	timeout    time.Duration
	limiter    *rate.Limiter // Throttles pipeline launches, nil when disabled
	logger     arbor.ILogger
}

// Compile-time assertion
var _ interfaces.PipelineRunner = (*Runner)(nil)

// NewRunner creates a runner from pipeline configuration
func NewRunner(cfg *common.PipelineConfig, timeout time.Duration, logger arbor.ILogger) (*Runner, error) {
	if len(cfg.ExtractCommand) == 0 {
		return nil, fmt.Errorf("extract command is empty")
	}
	if len(cfg.PreviewCommand) == 0 {
		return nil, fmt.Errorf("preview command is empty")
	}

	var limiter *rate.Limiter
	if cfg.LaunchInterval != "" {
		if interval, err := time.ParseDuration(cfg.LaunchInterval); err == nil && interval > 0 {
			limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}

	return &Runner{
		extractCmd: cfg.ExtractCommand,
		previewCmd: cfg.PreviewCommand,
		timeout:    timeout,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Extract runs the extraction pipeline: <cmd...> <job_dir> --pdfs <pdf_path>
func (r *Runner) Extract(ctx context.Context, jobDir, pdfPath string) (*interfaces.RunResult, error) {
	args := append(append([]string{}, r.extractCmd[1:]...), jobDir, "--pdfs", pdfPath)
	return r.run(ctx, "extract", r.extractCmd[0], args, "")
}

// RenderPreview runs the preview tool: <cmd...> <output_file>, with workDir as
// the working directory so dolma_previews lands inside the job directory.
func (r *Runner) RenderPreview(ctx context.Context, outputPath, workDir string) (*interfaces.RunResult, error) {
	args := append(append([]string{}, r.previewCmd[1:]...), outputPath)
	return r.run(ctx, "preview", r.previewCmd[0], args, workDir)
}

func (r *Runner) run(ctx context.Context, tool, name string, args []string, dir string) (*interfaces.RunResult, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for %s launch slot: %w", tool, err)
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	r.logger.Info().
		Str("tool", tool).
		Str("command", name).
		Strs("args", args).
		Msg("Running pipeline tool")

	err := cmd.Run()
	result := &interfaces.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		r.logger.Error().
			Err(err).
			Str("tool", tool).
			Dur("duration", time.Since(start)).
			Msg("Pipeline tool failed")

		return result, &interfaces.ToolExecutionError{
			Tool:   tool,
			Stderr: result.Stderr,
			Err:    err,
		}
	}

	r.logger.Info().
		Str("tool", tool).
		Dur("duration", time.Since(start)).
		Msg("Pipeline tool finished")

	return result, nil
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Service runs the full single-PDF extraction flow: job directory, pipeline
// invocation, result parsing, preview rendering and the download artifact.
type Service struct {
	config    *common.Config
	runner    interfaces.PipelineRunner
	inspector interfaces.PDFInspector
	jobs      interfaces.JobStorage
	events    interfaces.EventService
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ExtractService = (*Service)(nil)

// NewService creates an extraction service
func NewService(
	config *common.Config,
	runner interfaces.PipelineRunner,
	inspector interfaces.PDFInspector,
	jobs interfaces.JobStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		runner:    runner,
		inspector: inspector,
		jobs:      jobs,
		events:    events,
		logger:    logger,
	}
}

// ProcessPDF processes one PDF and returns the extraction result. Failures
// never surface as errors; the result carries the user-facing message in its
// Log field and an empty DownloadPath.
func (s *Service) ProcessPDF(ctx context.Context, pdfPath, sourceName string) *models.ExtractionResult {
	return s.process(ctx, pdfPath, sourceName, "")
}

// ProcessBatchItem behaves like ProcessPDF but tags the job with its batch
func (s *Service) ProcessBatchItem(ctx context.Context, pdfPath, sourceName, batchID string) *models.ExtractionResult {
	return s.process(ctx, pdfPath, sourceName, batchID)
}

func (s *Service) process(ctx context.Context, pdfPath, sourceName, batchID string) *models.ExtractionResult {
	if strings.TrimSpace(pdfPath) == "" {
		return &models.ExtractionResult{Log: "请上传PDF文件"}
	}
	if sourceName == "" {
		sourceName = filepath.Base(pdfPath)
	}

	jobID, workDir, err := s.createJobDir(time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create job directory")
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	job := models.NewExtractionJob(jobID, sourceName, workDir)
	job.BatchID = batchID
	s.saveJob(ctx, job)
	s.publish(ctx, interfaces.EventJobCreated, job)

	result := s.runJob(ctx, job, pdfPath)
	result.JobID = job.ID

	if result.Failed() {
		job.MarkFailed(result.Log)
		s.saveJob(ctx, job)
		s.publish(ctx, interfaces.EventJobFailed, job)
	} else {
		job.DownloadPath = result.DownloadPath
		job.MarkCompleted()
		s.saveJob(ctx, job)
		s.publish(ctx, interfaces.EventJobCompleted, job)
	}

	return result
}

func (s *Service) runJob(ctx context.Context, job *models.ExtractionJob, pdfPath string) *models.ExtractionResult {
	if info, err := s.inspector.Inspect(pdfPath); err != nil {
		// Inspection is best-effort; the pipeline gets the final say
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("PDF inspection failed")
	} else {
		job.PageCount = info.PageCount
		if info.Encrypted {
			return &models.ExtractionResult{Log: "处理过程中发生错误: PDF已加密，无法处理"}
		}
	}

	inputPath := filepath.Join(job.WorkDir, "input.pdf")
	if err := copyFile(pdfPath, inputPath); err != nil {
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	job.MarkRunning()
	s.saveJob(ctx, job)
	s.publish(ctx, interfaces.EventJobStarted, job)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("source", job.SourceName).
		Msg("Running extraction pipeline")

	runResult, err := s.runner.Extract(ctx, job.WorkDir, inputPath)
	if err != nil {
		var toolErr *interfaces.ToolExecutionError
		if errors.As(err, &toolErr) {
			return &models.ExtractionResult{Log: "命令执行失败: " + toolErr.Stderr}
		}
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}
	logText := runResult.Stdout

	outputFile, err := s.findOutputFile(job.WorkDir)
	if err != nil {
		var missing *MissingOutputError
		if errors.As(err, &missing) {
			if !missing.DirExists {
				return &models.ExtractionResult{Log: fmt.Sprintf("处理完成，但未生成结果目录\n\n日志输出:\n%s", logText)}
			}
			return &models.ExtractionResult{Log: fmt.Sprintf("处理完成，但未找到输出文件\n\n日志输出:\n%s", logText)}
		}
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	content, err := readOutputFile(outputFile)
	if err != nil {
		var empty *EmptyOutputError
		if errors.As(err, &empty) {
			return &models.ExtractionResult{Log: fmt.Sprintf("输出文件为空\n\n日志输出:\n%s", logText)}
		}
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	record, err := models.ParseExtractionRecord(content)
	if err != nil {
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	text := record.Text
	if !record.HasText {
		text = "未找到文本内容"
	}

	previewHTML, previewErr := s.renderPreview(ctx, outputFile, job.WorkDir)
	if previewErr != nil {
		var pErr *PreviewError
		if errors.As(previewErr, &pErr) && pErr.Stage == previewStageRead {
			logText += fmt.Sprintf("\n读取HTML预览失败: %v", pErr.Err)
		} else {
			logText += fmt.Sprintf("\n生成HTML预览失败: %v", previewErr)
		}
	}

	downloadPath := filepath.Join(job.WorkDir, job.Stem()+"_extracted_text.txt")
	if err := os.WriteFile(downloadPath, []byte(text), 0644); err != nil {
		return &models.ExtractionResult{Log: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	return &models.ExtractionResult{
		Log:          logText,
		Text:         text,
		PreviewHTML:  previewHTML,
		Metadata:     record.Metadata,
		DownloadPath: downloadPath,
	}
}

// createJobDir allocates a fresh timestamp-keyed directory under the
// workspace. Same-second submissions get a numeric suffix so no two jobs ever
// share a directory.
func (s *Service) createJobDir(now time.Time) (string, string, error) {
	if err := os.MkdirAll(s.config.Workspace.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create workspace: %w", err)
	}

	base := common.NewJobID(now)
	id := base
	for attempt := 2; attempt < 10000; attempt++ {
		dir := filepath.Join(s.config.Workspace.Dir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("failed to create job directory: %w", err)
		}
		id = fmt.Sprintf("%s_%d", base, attempt)
	}

	return "", "", fmt.Errorf("exhausted job directory names for %s", base)
}

// findOutputFile locates the pipeline's output under <job_dir>/results.
// Extra matches are ignored; the first file in sorted order wins.
func (s *Service) findOutputFile(workDir string) (string, error) {
	resultsDir := filepath.Join(workDir, "results")
	if _, err := os.Stat(resultsDir); err != nil {
		return "", &MissingOutputError{ResultsDir: resultsDir, DirExists: false}
	}

	matches, err := filepath.Glob(filepath.Join(resultsDir, "output_*.jsonl"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", &MissingOutputError{ResultsDir: resultsDir, DirExists: true}
	}

	sort.Strings(matches)
	return matches[0], nil
}

// readOutputFile reads the pipeline output, rejecting blank files
func readOutputFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", &EmptyOutputError{Path: path}
	}
	return string(data), nil
}

// renderPreview runs the preview tool with the job directory as working
// directory and reads the first generated HTML file. A missing preview is not
// an error; only a failed render or an unreadable file is.
func (s *Service) renderPreview(ctx context.Context, outputFile, workDir string) (string, error) {
	if _, err := s.runner.RenderPreview(ctx, outputFile, workDir); err != nil {
		return "", &PreviewError{Stage: previewStageRender, Err: err}
	}

	previewDir := filepath.Join(workDir, s.config.Pipeline.PreviewDirName)
	matches, err := filepath.Glob(filepath.Join(previewDir, "*.html"))
	if err != nil || len(matches) == 0 {
		return "", nil
	}

	sort.Strings(matches)
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		return "", &PreviewError{Stage: previewStageRead, Err: err}
	}

	return AdaptPreviewHTML(string(raw)), nil
}

func (s *Service) saveJob(ctx context.Context, job *models.ExtractionJob) {
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist job")
	}
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, job *models.ExtractionJob) {
	event := interfaces.Event{
		ID:      common.NewEventID(),
		Type:    eventType,
		Payload: job,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
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

package batch

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Service processes many PDFs on a bounded worker pool and collects the
// per-file text outputs into one zip archive.
type Service struct {
	config  *common.Config
	extract interfaces.ExtractService
	events  interfaces.EventService
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.BatchService = (*Service)(nil)

// NewService creates a batch service
func NewService(config *common.Config, extract interfaces.ExtractService, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		extract: extract,
		events:  events,
		logger:  logger,
	}
}

// ProcessBatch runs every input through the extraction flow and writes the
// archive. A per-item failure is not special: the item's text slot carries
// the failure message verbatim and the archive always holds one entry per
// input, in input order.
func (s *Service) ProcessBatch(ctx context.Context, inputs []interfaces.BatchInput) *models.BatchResult {
	if len(inputs) == 0 {
		return &models.BatchResult{Message: "请上传PDF文件"}
	}

	batchID, batchDir, err := s.createBatchDir(time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create batch directory")
		return &models.BatchResult{Message: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	s.publish(ctx, interfaces.EventBatchStarted, batchID)
	s.logger.Info().
		Str("batch_id", batchID).
		Int("file_count", len(inputs)).
		Int("concurrency", s.concurrency()).
		Msg("Starting batch processing")

	texts := make([]string, len(inputs))
	sem := make(chan struct{}, s.concurrency())
	var wg sync.WaitGroup

	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input interfaces.BatchInput) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().
						Str("batch_id", batchID).
						Str("source", input.SourceName).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", common.GetStackTrace()).
						Msg("Panic while processing batch item")
					texts[i] = fmt.Sprintf("处理过程中发生错误: %v", r)
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			result := s.extract.ProcessBatchItem(ctx, input.Path, input.SourceName, batchID)
			if result.Failed() {
				texts[i] = result.Log
			} else {
				texts[i] = result.Text
			}
		}(i, input)
	}
	wg.Wait()

	archivePath := filepath.Join(batchDir, s.config.Batch.ArchiveName)
	if err := writeArchive(archivePath, inputs, texts); err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("Failed to write batch archive")
		return &models.BatchResult{BatchID: batchID, Message: fmt.Sprintf("处理过程中发生错误: %v", err)}
	}

	s.publish(ctx, interfaces.EventBatchCompleted, batchID)
	s.logger.Info().
		Str("batch_id", batchID).
		Str("archive", archivePath).
		Msg("Batch processing finished")

	return &models.BatchResult{
		BatchID:     batchID,
		Message:     "所有文件处理完成！",
		ArchivePath: archivePath,
	}
}

func (s *Service) concurrency() int {
	if s.config.Batch.Concurrency < 1 {
		return 1
	}
	return s.config.Batch.Concurrency
}

// createBatchDir allocates a fresh timestamp-keyed batch directory, suffixing
// on same-second collisions like job directories do.
func (s *Service) createBatchDir(now time.Time) (string, string, error) {
	if err := os.MkdirAll(s.config.Workspace.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create workspace: %w", err)
	}

	base := common.NewBatchID(now)
	id := base
	for attempt := 2; attempt < 10000; attempt++ {
		dir := filepath.Join(s.config.Workspace.Dir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("failed to create batch directory: %w", err)
		}
		id = fmt.Sprintf("%s_%d", base, attempt)
	}

	return "", "", fmt.Errorf("exhausted batch directory names for %s", base)
}

// writeArchive writes one <stem>_extracted_text.txt entry per input, in
// input order.
func writeArchive(archivePath string, inputs []interfaces.BatchInput, texts []string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, input := range inputs {
		name := input.SourceName
		if name == "" {
			name = input.Path
		}
		entry, err := zw.Create(models.FileStem(name) + "_extracted_text.txt")
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to create archive entry: %w", err)
		}
		if _, err := entry.Write([]byte(texts[i])); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write archive entry: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	return f.Sync()
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, batchID string) {
	event := interfaces.Event{
		ID:      common.NewEventID(),
		Type:    eventType,
		Payload: batchID,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

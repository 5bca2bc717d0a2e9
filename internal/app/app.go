package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/handlers"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/pipeline"
	"github.com/ternarybob/scribe/internal/services/batch"
	"github.com/ternarybob/scribe/internal/services/events"
	"github.com/ternarybob/scribe/internal/services/export"
	"github.com/ternarybob/scribe/internal/services/extract"
	"github.com/ternarybob/scribe/internal/services/split"
	"github.com/ternarybob/scribe/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	EventService   interfaces.EventService
	Runner         *pipeline.Runner
	SplitService   *split.Service
	ExtractService interfaces.ExtractService
	BatchService   interfaces.BatchService
	ExportService  interfaces.ExportService

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	PageHandler    *handlers.PageHandler
	WSHandler      *handlers.WebSocketHandler
	ExtractHandler *handlers.ExtractHandler
	BatchHandler   *handlers.BatchHandler
	SplitHandler   *handlers.SplitHandler
	JobHandler     *handlers.JobHandler

	wsWriter  *handlers.WebSocketWriter
	retention *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.initRetention(); err != nil {
		return nil, fmt.Errorf("failed to initialize retention: %w", err)
	}

	logger.Info().
		Str("workspace", cfg.Workspace.Dir).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	runner, err := pipeline.NewRunner(&a.Config.Pipeline, a.Config.PipelineTimeout(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline runner: %w", err)
	}
	a.Runner = runner

	a.SplitService = split.NewService(a.Logger)
	a.ExportService = export.NewService(a.Logger)

	a.ExtractService = extract.NewService(
		a.Config,
		a.Runner,
		a.SplitService,
		a.StorageManager.JobStorage(),
		a.EventService,
		a.Logger,
	)

	a.BatchService = batch.NewService(
		a.Config,
		a.ExtractService,
		a.EventService,
		a.Logger,
	)

	a.Logger.Debug().
		Strs("extract_command", a.Config.Pipeline.ExtractCommand).
		Int("batch_concurrency", a.Config.Batch.Concurrency).
		Msg("Services initialized")
	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Config.Logging.ClientDebug)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.ExtractHandler = handlers.NewExtractHandler(a.ExtractService, a.ExportService, a.Logger)
	a.BatchHandler = handlers.NewBatchHandler(a.BatchService, a.Logger)
	a.SplitHandler = handlers.NewSplitHandler(a.Config, a.SplitService, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Config, a.StorageManager.JobStorage(), a.ExportService, a.Logger)

	// Streams filtered log lines to connected UI clients
	wsWriter, err := handlers.NewWebSocketWriter(a.WSHandler, arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}, &a.Config.WebSocket)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to create WebSocket log writer")
	} else {
		a.wsWriter = wsWriter
	}
}

// initRetention starts the cron job pruning old workspace directories and
// their job records.
func (a *App) initRetention() error {
	if !a.Config.Retention.Enabled {
		a.Logger.Debug().Msg("Workspace retention disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(a.Config.Retention.Schedule, func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", common.GetStackTrace()).
					Msg("Recovered from panic in retention job")
			}
		}()
		a.pruneWorkspace()
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", a.Config.Retention.Schedule, err)
	}

	c.Start()
	a.retention = c
	a.Logger.Info().
		Str("schedule", a.Config.Retention.Schedule).
		Str("max_age", a.Config.Retention.MaxAge).
		Msg("Workspace retention started")
	return nil
}

// pruneWorkspace removes job, batch and split directories older than the
// retention window, then drops the matching job records.
func (a *App) pruneWorkspace() {
	cutoff := time.Now().Add(-a.Config.RetentionMaxAge())

	entries, err := os.ReadDir(a.Config.Workspace.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			a.Logger.Warn().Err(err).Msg("Failed to read workspace directory")
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "job_") && !strings.HasPrefix(name, "batch_") && !strings.HasPrefix(name, "split_") {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(a.Config.Workspace.Dir, name)
		if err := os.RemoveAll(dir); err != nil {
			a.Logger.Warn().Err(err).Str("dir", dir).Msg("Failed to prune workspace directory")
			continue
		}
		removed++
	}

	deleted, err := a.StorageManager.JobStorage().DeleteJobsOlderThan(context.Background(), cutoff)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to prune job records")
	}

	if removed > 0 || deleted > 0 {
		a.Logger.Info().
			Int("directories", removed).
			Int("records", deleted).
			Msg("Workspace retention pass complete")
	}
}

// Close closes all application resources
func (a *App) Close() error {
	if a.retention != nil {
		ctx := a.retention.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			a.Logger.Warn().Msg("Retention job did not stop in time")
		}
	}

	if a.wsWriter != nil {
		if err := a.wsWriter.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close WebSocket log writer")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

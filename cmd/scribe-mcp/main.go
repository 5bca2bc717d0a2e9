package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/pipeline"
	"github.com/ternarybob/scribe/internal/services/batch"
	"github.com/ternarybob/scribe/internal/services/events"
	"github.com/ternarybob/scribe/internal/services/extract"
	"github.com/ternarybob/scribe/internal/services/split"
	"github.com/ternarybob/scribe/internal/storage"
)

func main() {
	configPath := os.Getenv("SCRIBE_CONFIG")
	if configPath == "" {
		configPath = "scribe.toml"
	}
	if _, err := os.Stat(configPath); err != nil {
		// Fall back to built-in defaults when no config file exists
		configPath = ""
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	runner, err := pipeline.NewRunner(&config.Pipeline, config.PipelineTimeout(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize pipeline runner")
	}

	eventService := events.NewService(logger)
	splitService := split.NewService(logger)
	extractService := extract.NewService(
		config,
		runner,
		splitService,
		storageManager.JobStorage(),
		eventService,
		logger,
	)
	batchService := batch.NewService(config, extractService, eventService, logger)

	mcpServer := server.NewMCPServer(
		"scribe",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createProcessPDFTool(), handleProcessPDF(extractService, logger))
	mcpServer.AddTool(createBatchProcessTool(), handleBatchProcess(batchService, logger))
	mcpServer.AddTool(createListJobsTool(), handleListJobs(storageManager.JobStorage(), logger))
	mcpServer.AddTool(createGetJobTool(), handleGetJob(storageManager.JobStorage(), logger))

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}

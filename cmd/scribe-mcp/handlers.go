package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleProcessPDF implements the process_pdf tool
func handleProcessPDF(extractService interfaces.ExtractService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil || path == "" {
			return textResult("Error: path parameter is required"), nil
		}

		result := extractService.ProcessPDF(ctx, path, filepath.Base(path))
		return textResult(formatExtractionResult(result)), nil
	}
}

// handleBatchProcess implements the batch_process tool
func handleBatchProcess(batchService interfaces.BatchService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := request.GetStringSlice("paths", nil)
		if len(paths) == 0 {
			return textResult("Error: paths parameter is required"), nil
		}

		inputs := make([]interfaces.BatchInput, 0, len(paths))
		for _, path := range paths {
			inputs = append(inputs, interfaces.BatchInput{
				Path:       path,
				SourceName: filepath.Base(path),
			})
		}

		result := batchService.ProcessBatch(ctx, inputs)
		return textResult(formatBatchResult(result)), nil
	}
}

// handleListJobs implements the list_jobs tool
func handleListJobs(jobs interfaces.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit > 100 {
			limit = 100
		}

		list, err := jobs.ListJobs(ctx, &interfaces.JobListOptions{
			Status: request.GetString("status", ""),
			Limit:  limit,
		})
		if err != nil {
			logger.Error().Err(err).Msg("List jobs failed")
			return textResult(fmt.Sprintf("List error: %v", err)), nil
		}

		return textResult(formatJobList(list)), nil
	}
}

// handleGetJob implements the get_job tool
func handleGetJob(jobs interfaces.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := request.RequireString("job_id")
		if err != nil || jobID == "" {
			return textResult("Error: job_id parameter is required"), nil
		}

		job, err := jobs.GetJob(ctx, jobID)
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("GetJob failed")
			return textResult(fmt.Sprintf("Job not found: %v", err)), nil
		}

		return textResult(formatJob(job)), nil
	}
}

package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createProcessPDFTool returns the process_pdf tool definition
func createProcessPDFTool() mcp.Tool {
	return mcp.NewTool("process_pdf",
		mcp.WithDescription("Run the OCR extraction pipeline on a local PDF file and return the extracted text"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path to the PDF file"),
		),
	)
}

// createBatchProcessTool returns the batch_process tool definition
func createBatchProcessTool() mcp.Tool {
	return mcp.NewTool("batch_process",
		mcp.WithDescription("Run the OCR extraction pipeline on several local PDF files and assemble a text archive"),
		mcp.WithArray("paths",
			mcp.WithStringItems(),
			mcp.Required(),
			mcp.Description("Absolute paths to the PDF files"),
		),
	)
}

// createListJobsTool returns the list_jobs tool definition
func createListJobsTool() mcp.Tool {
	return mcp.NewTool("list_jobs",
		mcp.WithDescription("List extraction jobs, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 20, max: 100)"),
		),
		mcp.WithString("status",
			mcp.Description("Filter: pending, running, completed, failed"),
		),
	)
}

// createGetJobTool returns the get_job tool definition
func createGetJobTool() mcp.Tool {
	return mcp.NewTool("get_job",
		mcp.WithDescription("Retrieve one extraction job by ID, including its extracted text when available"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID (format: job_<timestamp>)"),
		),
	)
}

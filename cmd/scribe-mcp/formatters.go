package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// formatExtractionResult formats a single-PDF run as markdown
func formatExtractionResult(result *models.ExtractionResult) string {
	var sb strings.Builder

	if result.Failed() {
		sb.WriteString("## Extraction Failed\n\n")
		sb.WriteString(result.Log)
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("## Extraction Complete (%s)\n\n", result.JobID))

	if len(result.Metadata) > 0 {
		sb.WriteString("### Metadata\n\n")
		for _, row := range result.Metadata {
			sb.WriteString(fmt.Sprintf("- **%s:** %s\n", row.Key, row.Value))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Extracted Text\n\n")
	sb.WriteString(result.Text)
	sb.WriteString("\n")

	return sb.String()
}

// formatBatchResult formats a batch run as markdown
func formatBatchResult(result *models.BatchResult) string {
	var sb strings.Builder
	sb.WriteString("## Batch Result\n\n")
	sb.WriteString(result.Message)
	sb.WriteString("\n")

	if result.BatchID != "" {
		sb.WriteString(fmt.Sprintf("\n**Batch ID:** %s\n", result.BatchID))
	}
	if result.ArchivePath != "" {
		sb.WriteString(fmt.Sprintf("**Archive:** %s\n", result.ArchivePath))
	}
	return sb.String()
}

// formatJobList formats the job history as markdown
func formatJobList(jobs []*models.ExtractionJob) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Extraction Jobs (%d)\n\n", len(jobs)))

	if len(jobs) == 0 {
		sb.WriteString("No jobs found.\n")
		return sb.String()
	}

	for i, job := range jobs {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s)\n", i+1, job.ID, job.Status))
		sb.WriteString(fmt.Sprintf("   Source: %s\n", job.SourceName))
		sb.WriteString(fmt.Sprintf("   Created: %s\n", job.CreatedAt.Format(time.RFC3339)))
		if job.BatchID != "" {
			sb.WriteString(fmt.Sprintf("   Batch: %s\n", job.BatchID))
		}
		if job.Error != "" {
			sb.WriteString(fmt.Sprintf("   Error: %s\n", job.Error))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatJob formats a single job, inlining its extracted text when the
// artifact still exists on disk.
func formatJob(job *models.ExtractionJob) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", job.ID))
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", job.SourceName))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n", job.CreatedAt.Format(time.RFC3339)))
	if job.PageCount > 0 {
		sb.WriteString(fmt.Sprintf("**Pages:** %d\n", job.PageCount))
	}
	if job.BatchID != "" {
		sb.WriteString(fmt.Sprintf("**Batch:** %s\n", job.BatchID))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("**Error:** %s\n", job.Error))
	}

	if job.DownloadPath != "" {
		if content, err := os.ReadFile(job.DownloadPath); err == nil {
			sb.WriteString("\n## Extracted Text\n\n")
			sb.Write(content)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

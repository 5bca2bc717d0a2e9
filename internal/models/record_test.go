package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionRecord(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  bool
		wantText string
		hasText  bool
	}{
		{
			name:     "text and metadata",
			content:  `{"text": "hello world", "metadata": {"pages": 3}}`,
			wantText: "hello world",
			hasText:  true,
		},
		{
			name:    "missing text key",
			content: `{"metadata": {"pages": 3}}`,
			hasText: false,
		},
		{
			name:    "null text",
			content: `{"text": null}`,
			hasText: false,
		},
		{
			name:    "empty content",
			content: "   \n  ",
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			content: `{"text": "unterminated`,
			wantErr: true,
		},
		{
			name:    "multiple JSON lines",
			content: "{\"text\": \"a\"}\n{\"text\": \"b\"}",
			wantErr: true,
		},
		{
			name:    "JSON array",
			content: `[{"text": "a"}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ParseExtractionRecord(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.hasText, record.HasText)
			assert.Equal(t, tt.wantText, record.Text)
		})
	}
}

func TestParseExtractionRecord_MetadataOrder(t *testing.T) {
	content := `{"text": "x", "metadata": {"zulu": 1, "alpha": "two", "mike": true, "nested": {"a": 1}, "empty": null}}`

	record, err := ParseExtractionRecord(content)
	require.NoError(t, err)
	require.Len(t, record.Metadata, 5)

	// Rows follow document order, not lexical order
	assert.Equal(t, "zulu", record.Metadata[0].Key)
	assert.Equal(t, "1", record.Metadata[0].Value)
	assert.Equal(t, "alpha", record.Metadata[1].Key)
	assert.Equal(t, "two", record.Metadata[1].Value)
	assert.Equal(t, "mike", record.Metadata[2].Key)
	assert.Equal(t, "true", record.Metadata[2].Value)
	assert.Equal(t, "nested", record.Metadata[3].Key)
	assert.Equal(t, `{"a": 1}`, record.Metadata[3].Value)
	assert.Equal(t, "empty", record.Metadata[4].Key)
	assert.Equal(t, "null", record.Metadata[4].Value)
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "report", FileStem("/tmp/uploads/report.pdf"))
	assert.Equal(t, "scan.v2", FileStem("scan.v2.pdf"))
	assert.Equal(t, "noext", FileStem("noext"))
}

func TestExtractionJobTransitions(t *testing.T) {
	job := NewExtractionJob("job_1700000000", "report.pdf", "/work/job_1700000000")

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, "report", job.Stem())
	assert.Nil(t, job.StartedAt)

	job.MarkRunning()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.MarkFailed("命令执行失败: boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "命令执行失败: boom", job.Error)
	require.NotNil(t, job.CompletedAt)
}

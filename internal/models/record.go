package models

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// MetadataRow is one entry of the two-column metadata table shown in the UI
type MetadataRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExtractionRecord is the parsed content of one pipeline output file
type ExtractionRecord struct {
	Text     string        `json:"text"`
	HasText  bool          `json:"has_text"`
	Metadata []MetadataRow `json:"metadata"`
}

// ParseExtractionRecord parses the content of a result file as a single JSON
// object. Metadata rows preserve the key order of the document, which the
// standard library's map-based decoding would lose.
func ParseExtractionRecord(content string) (*ExtractionRecord, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("record is empty")
	}
	if !gjson.Valid(trimmed) {
		return nil, fmt.Errorf("record is not valid JSON")
	}

	root := gjson.Parse(trimmed)
	if !root.IsObject() {
		return nil, fmt.Errorf("record is not a JSON object")
	}

	record := &ExtractionRecord{}

	if text := root.Get("text"); text.Exists() && text.Type != gjson.Null {
		record.Text = text.String()
		record.HasText = true
	}

	if meta := root.Get("metadata"); meta.IsObject() {
		meta.ForEach(func(key, value gjson.Result) bool {
			record.Metadata = append(record.Metadata, MetadataRow{
				Key:   key.String(),
				Value: metadataValue(value),
			})
			return true
		})
	}

	return record, nil
}

// metadataValue renders a metadata value as display text. Scalars render as
// plain text, nested structures keep their JSON form.
func metadataValue(value gjson.Result) string {
	switch value.Type {
	case gjson.JSON:
		return value.Raw
	case gjson.Null:
		return "null"
	default:
		return value.String()
	}
}

// ExtractionResult is what a completed single-job run returns to the caller.
// On failure Log carries the human-readable message and all other fields are
// zero values.
type ExtractionResult struct {
	JobID        string        `json:"job_id"`
	Log          string        `json:"log"`
	Text         string        `json:"text"`
	PreviewHTML  string        `json:"preview_html,omitempty"`
	Metadata     []MetadataRow `json:"metadata,omitempty"`
	DownloadPath string        `json:"download_path,omitempty"`
}

// Failed reports whether the run produced no extracted text artifact
func (r *ExtractionResult) Failed() bool {
	return r.DownloadPath == ""
}

// BatchResult is what a batch run returns: a status message and, when any
// inputs were given, the path to the assembled archive.
type BatchResult struct {
	BatchID     string `json:"batch_id,omitempty"`
	Message     string `json:"message"`
	ArchivePath string `json:"archive_path,omitempty"`
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type fakeExtractService struct {
	result   *models.ExtractionResult
	lastName string
	lastPath string
}

func (f *fakeExtractService) ProcessPDF(ctx context.Context, pdfPath, sourceName string) *models.ExtractionResult {
	f.lastPath = pdfPath
	f.lastName = sourceName
	return f.result
}

func (f *fakeExtractService) ProcessBatchItem(ctx context.Context, pdfPath, sourceName, batchID string) *models.ExtractionResult {
	return f.ProcessPDF(ctx, pdfPath, sourceName)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestProcessHandler_Success(t *testing.T) {
	svc := &fakeExtractService{
		result: &models.ExtractionResult{
			JobID:        "job_42",
			Log:          "done",
			Text:         "extracted",
			DownloadPath: "/ws/job_42/doc_extracted_text.txt",
			Metadata: []models.MetadataRow{
				{Key: "Source-File", Value: "doc.pdf"},
			},
		},
	}
	handler := NewExtractHandler(svc, &fakeExportService{}, arbor.NewLogger())

	body, contentType := multipartUpload(t, "file", "doc.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ProcessHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job_42", resp.JobID)
	assert.Equal(t, "extracted", resp.Text)
	assert.Equal(t, "<p>extracted</p>", resp.TextHTML)
	assert.Equal(t, "/api/jobs/job_42/download", resp.DownloadURL)
	assert.Equal(t, "doc.pdf", svc.lastName)

	// The temp upload is cleaned up after the handler returns
	_, err := os.Stat(svc.lastPath)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessHandler_Failure_NoDownloadURL(t *testing.T) {
	svc := &fakeExtractService{
		result: &models.ExtractionResult{
			JobID: "job_43",
			Log:   "命令执行失败: boom",
		},
	}
	handler := NewExtractHandler(svc, &fakeExportService{}, arbor.NewLogger())

	body, contentType := multipartUpload(t, "file", "doc.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ProcessHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "命令执行失败: boom", resp.Log)
	assert.Empty(t, resp.DownloadURL)
}

func TestProcessHandler_MissingFile(t *testing.T) {
	handler := NewExtractHandler(&fakeExtractService{}, &fakeExportService{}, arbor.NewLogger())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.ProcessHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "请上传PDF文件")
}

func TestProcessHandler_RejectsNonPDF(t *testing.T) {
	handler := NewExtractHandler(&fakeExtractService{}, &fakeExportService{}, arbor.NewLogger())

	body, contentType := multipartUpload(t, "file", "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ProcessHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "请上传PDF文件")
}

func TestProcessHandler_MethodNotAllowed(t *testing.T) {
	handler := NewExtractHandler(&fakeExtractService{}, &fakeExportService{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/process", nil)
	rec := httptest.NewRecorder()

	handler.ProcessHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type fakeBatchService struct {
	result *models.BatchResult
	inputs []interfaces.BatchInput
	saved  [][]byte
}

func (f *fakeBatchService) ProcessBatch(ctx context.Context, inputs []interfaces.BatchInput) *models.BatchResult {
	f.inputs = inputs
	// Snapshot contents now; the handler removes the upload dir on return
	f.saved = nil
	for _, input := range inputs {
		data, _ := os.ReadFile(input.Path)
		f.saved = append(f.saved, data)
	}
	return f.result
}

func TestBatchProcessHandler_Success(t *testing.T) {
	svc := &fakeBatchService{
		result: &models.BatchResult{
			BatchID:     "batch_100",
			Message:     "所有文件处理完成！",
			ArchivePath: "/ws/batch_100/extracted_texts.zip",
		},
	}
	handler := NewBatchHandler(svc, arbor.NewLogger())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range []string{"a.pdf", "b.pdf"} {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batch_process", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.BatchProcessHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "batch_100", resp.BatchID)
	assert.Equal(t, "所有文件处理完成！", resp.Message)
	assert.Equal(t, "/api/batches/batch_100/archive", resp.ArchiveURL)

	require.Len(t, svc.inputs, 2)
	assert.Equal(t, "a.pdf", svc.inputs[0].SourceName)
	assert.Equal(t, "b.pdf", svc.inputs[1].SourceName)
}

func TestBatchProcessHandler_SameNamedUploadsKeptApart(t *testing.T) {
	svc := &fakeBatchService{
		result: &models.BatchResult{
			BatchID: "batch_101",
			Message: "所有文件处理完成！",
		},
	}
	handler := NewBatchHandler(svc, arbor.NewLogger())

	contents := []string{"first report", "second report"}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, content := range contents {
		part, err := writer.CreateFormFile("files", "report.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batch_process", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.BatchProcessHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.inputs, 2)
	assert.NotEqual(t, svc.inputs[0].Path, svc.inputs[1].Path)
	for i, content := range contents {
		assert.Equal(t, "report.pdf", svc.inputs[i].SourceName)
		assert.Equal(t, content, string(svc.saved[i]))
	}
}

func TestBatchProcessHandler_NoFiles(t *testing.T) {
	handler := NewBatchHandler(&fakeBatchService{}, arbor.NewLogger())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batch_process", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.BatchProcessHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "请上传PDF文件")
}

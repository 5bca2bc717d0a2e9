package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// maxUploadSize bounds multipart form parsing (per request)
const maxUploadSize = 256 << 20

// saveUploadedFile writes one uploaded file into dir and returns its path.
// The stored name keeps only the base of the client-supplied filename.
func saveUploadedFile(dir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	name := filepath.Base(fh.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload.pdf"
	}

	dstPath := filepath.Join(dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return dstPath, nil
}

// isPDFUpload reports whether the uploaded filename looks like a PDF
func isPDFUpload(fh *multipart.FileHeader) bool {
	return strings.EqualFold(filepath.Ext(fh.Filename), ".pdf")
}

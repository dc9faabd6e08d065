package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
)

const maxUploadMemory = 32 << 20

// maxUploadBody caps the whole multipart body, files and fields together.
var maxUploadBody int64 = 64 << 20

// stageFile copies the multipart file in field into dir and returns its
// path, or "" when the field is absent. Callers remove the file.
//
// A malformed or oversized body yields InvalidArgument. Failing to stage the
// file on disk is Internal.
func stageFile(w http.ResponseWriter, r *http.Request, field, dir string) (string, error) {
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", common.InvalidArgument("upload is too large")
			}
			return "", common.InvalidArgument("invalid multipart form")
		}
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", common.Internal("failed to receive "+field, err)
	}
	defer file.Close()

	path, err := copyToDir(file, header, dir)
	if err != nil {
		return "", common.Internal("failed to receive "+field, err)
	}
	return path, nil
}

func copyToDir(file multipart.File, header *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(header.Filename)))
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return dst.Name(), nil
}

// discardStaged removes staged files left behind by a failed request.
func discardStaged(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}

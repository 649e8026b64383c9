package service

import (
	"context"
	"fmt"

	"github.com/PuneWines/Document-manager/config"
)

// FileUploader stores an uploaded document file and returns the public URL
// to record in the sheet. The sheet only ever holds the URL; ownership of
// the bytes lies with the storage backend.
type FileUploader interface {
	Upload(ctx context.Context, fileName, mimeType string, data []byte) (string, error)
}

// ScriptUploader routes file bytes through the scripting endpoint, which
// stores them in the Drive folder next to the sheets. Default backend.
type ScriptUploader struct {
	sheets *SheetsService
}

func NewScriptUploader(sheets *SheetsService) *ScriptUploader {
	return &ScriptUploader{sheets: sheets}
}

func (u *ScriptUploader) Upload(_ context.Context, fileName, mimeType string, data []byte) (string, error) {
	return u.sheets.UploadFile(fileName, mimeType, data)
}

// NewFileUploader builds the configured upload backend.
func NewFileUploader(cfg *config.Config, sheets *SheetsService) (FileUploader, error) {
	switch cfg.Upload.Backend {
	case "", "script":
		return NewScriptUploader(sheets), nil
	case "minio":
		return NewMinioUploader(&cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown upload backend: %s", cfg.Upload.Backend)
	}
}

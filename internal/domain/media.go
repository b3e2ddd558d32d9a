package domain

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/wholesail/wholesail/pkg/storage"
)

//go:generate mockgen -destination mocks/mock_media_service.go -package mocks github.com/wholesail/wholesail/internal/domain MediaService

const MaxMediaUploadBytes int64 = 10 << 20

var mediaFolders = map[string]bool{"campaigns": true, "products": true, "categories": true}

type UploadMediaRequest struct {
	Folder   string
	Filename string
	Body     io.Reader
}

func (r *UploadMediaRequest) Validate() error {
	r.Folder = strings.Trim(strings.TrimSpace(r.Folder), "/")
	if r.Folder == "" {
		r.Folder = "campaigns"
	}
	if !mediaFolders[r.Folder] {
		return NewValidationError("folder must be one of campaigns, products, categories")
	}
	r.Filename = path.Base(strings.ReplaceAll(strings.TrimSpace(r.Filename), "\\", "/"))
	if r.Filename == "" || r.Filename == "." || r.Filename == "/" {
		return NewValidationError("filename is required")
	}
	if r.Body == nil {
		return NewValidationError("file is required")
	}
	return nil
}

type MediaService interface {
	Upload(ctx context.Context, req UploadMediaRequest) (*storage.Object, error)
	List(ctx context.Context, folder string) ([]storage.Object, error)
	Delete(ctx context.Context, names []string) error
}

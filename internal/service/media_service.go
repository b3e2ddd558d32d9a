package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/slug"
	"github.com/wholesail/wholesail/pkg/storage"
	"github.com/wholesail/wholesail/pkg/tracing"
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var mediaFolders = []string{"campaigns", "products", "categories"}

type MediaService struct {
	storage  storage.Storage
	maxBytes int64
	logger   logger.Logger
}

// NewMediaService creates the media service. maxBytes <= 0 uses
// domain.MaxMediaUploadBytes.
func NewMediaService(store storage.Storage, maxBytes int64, logger logger.Logger) *MediaService {
	if maxBytes <= 0 {
		maxBytes = domain.MaxMediaUploadBytes
	}
	return &MediaService{
		storage:  store,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// objectName keeps a readable stem of the client filename behind a random prefix.
func objectName(folder, filename, ext string) string {
	stem := slug.Slugify(strings.TrimSuffix(filename, path.Ext(filename)))
	if stem == "" {
		stem = "image"
	}
	return folder + "/" + uuid.New().String() + "-" + stem + ext
}

// Upload stores an image and returns its listing entry. The content type is
// sniffed from the bytes; the client's declared type and extension are ignored.
func (s *MediaService) Upload(ctx context.Context, req domain.UploadMediaRequest) (*storage.Object, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "MediaService", "Upload")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.NewValidationError(fmt.Sprintf("file exceeds the %d MiB limit", s.maxBytes>>20))
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError("file is empty")
	}

	mimeType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[mimeType]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported file type %s, only PNG, JPEG, GIF and WebP images are accepted", mimeType))
	}

	name := objectName(req.Folder, req.Filename, ext)
	url, err := s.storage.Upload(ctx, name, mimeType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("object", name).Error(fmt.Sprintf("Failed to upload media: %v", err))
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	return &storage.Object{
		Name:      name,
		URL:       url,
		Size:      int64(len(data)),
		MimeType:  mimeType,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// List returns the objects of one folder, or of every media folder when
// folder is empty.
func (s *MediaService) List(ctx context.Context, folder string) ([]storage.Object, error) {
	folders := mediaFolders
	if folder = strings.Trim(folder, "/"); folder != "" {
		if !isMediaFolder(folder) {
			return nil, domain.NewValidationError("folder must be one of campaigns, products, categories")
		}
		folders = []string{folder}
	}

	objects := make([]storage.Object, 0)
	for _, f := range folders {
		list, err := s.storage.List(ctx, f+"/")
		if err != nil {
			s.logger.WithField("folder", f).Error(fmt.Sprintf("Failed to list media: %v", err))
			return nil, fmt.Errorf("failed to list media: %w", err)
		}
		objects = append(objects, list...)
	}
	return objects, nil
}

// Delete removes objects by name. Names outside the media folders are rejected.
func (s *MediaService) Delete(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return domain.NewValidationError("at least one name is required")
	}
	for _, n := range names {
		folder, _, ok := strings.Cut(n, "/")
		if !ok || !isMediaFolder(folder) || strings.Contains(n, "..") {
			return domain.NewValidationError(fmt.Sprintf("invalid object name %q", n))
		}
	}

	if err := s.storage.Delete(ctx, names...); err != nil {
		s.logger.WithField("count", len(names)).Error(fmt.Sprintf("Failed to delete media: %v", err))
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

func isMediaFolder(folder string) bool {
	for _, f := range mediaFolders {
		if f == folder {
			return true
		}
	}
	return false
}

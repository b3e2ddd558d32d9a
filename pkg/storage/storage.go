// Package storage wraps the object store that holds campaign and catalog images.
package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

//go:generate mockgen -destination=../../internal/domain/mocks/mock_storage.go -package=mocks github.com/wholesail/wholesail/pkg/storage Storage

// Object is the listing metadata of a stored file.
type Object struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

type Storage interface {
	// Upload stores body under name and returns its public URL.
	Upload(ctx context.Context, name, contentType string, body io.ReadSeeker, size int64) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, names ...string) error
	PublicURL(name string) string
}

// mimeFromName guesses a content type from the file extension.
func mimeFromName(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	return "application/octet-stream"
}

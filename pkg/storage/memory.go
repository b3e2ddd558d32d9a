package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStorage keeps objects in process memory. Used when no bucket is configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memObject
	now     func() time.Time
}

type memObject struct {
	data        []byte
	contentType string
	created     time.Time
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memObject),
		now:     time.Now,
	}
}

func (m *MemoryStorage) PublicURL(name string) string {
	return m.baseURL + "/" + name
}

func (m *MemoryStorage) Upload(_ context.Context, name, contentType string, body io.ReadSeeker, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = memObject{data: data, contentType: contentType, created: m.now()}
	return m.PublicURL(name), nil
}

func (m *MemoryStorage) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Object, 0, len(m.objects))
	for name, o := range m.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, Object{
			Name:      name,
			URL:       m.PublicURL(name),
			Size:      int64(len(o.data)),
			MimeType:  o.contentType,
			CreatedAt: o.created,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStorage) Delete(_ context.Context, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		delete(m.objects, n)
	}
	return nil
}

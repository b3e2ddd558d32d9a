package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/cache"
)

// MemoryDraftStore is the single-process fallback used when no Redis address
// is configured. Drafts are stored as JSON so callers never share the slices
// of a stored draft.
type MemoryDraftStore struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewMemoryDraftStore(c cache.Cache, ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{cache: c, ttl: ttl}
}

func (s *MemoryDraftStore) Save(_ context.Context, sessionID string, draft *domain.CampaignDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	s.cache.Set(draftKey(sessionID), data, s.ttl)
	return nil
}

func (s *MemoryDraftStore) Load(_ context.Context, sessionID string) (*domain.CampaignDraft, error) {
	key := draftKey(sessionID)
	v, ok := s.cache.Get(key)
	if !ok {
		return domain.NewCampaignDraft(), nil
	}
	data, ok := v.([]byte)
	if !ok {
		return domain.NewCampaignDraft(), nil
	}

	draft := domain.NewCampaignDraft()
	if err := json.Unmarshal(data, draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	s.cache.Set(key, data, s.ttl)
	return draft, nil
}

func (s *MemoryDraftStore) Clear(_ context.Context, sessionID string) error {
	s.cache.Delete(draftKey(sessionID))
	return nil
}

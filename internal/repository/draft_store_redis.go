package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wholesail/wholesail/internal/domain"
)

const draftKeyPrefix = "draft:"

// RedisDraftStore keeps campaign drafts in Redis with a sliding TTL so an idle
// session's draft expires on its own.
type RedisDraftStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDraftStore(client redis.UniversalClient, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(sessionID string) string {
	return draftKeyPrefix + sessionID
}

func (s *RedisDraftStore) Save(ctx context.Context, sessionID string, draft *domain.CampaignDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Load(ctx context.Context, sessionID string) (*domain.CampaignDraft, error) {
	key := draftKey(sessionID)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCampaignDraft(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	draft := domain.NewCampaignDraft()
	if err := json.Unmarshal(data, draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return nil, fmt.Errorf("failed to refresh draft ttl: %w", err)
		}
	}
	return draft, nil
}

func (s *RedisDraftStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

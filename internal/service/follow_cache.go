package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/observability"
)

// cachedFollowService keeps watcher counts in Redis. Watch edge writes made
// through it drop the cached count; other deletions expire with the ttl.
type cachedFollowService struct {
	FollowService
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedFollowService wraps inner with a Redis count cache. A nil client
// returns inner unchanged.
func NewCachedFollowService(inner FollowService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) FollowService {
	if cache == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &cachedFollowService{
		FollowService: inner,
		cache:         cache,
		ttl:           ttl,
		logger:        logger.With().Str("component", "follow_cache").Logger(),
	}
}

func (s *cachedFollowService) WatchPost(ctx context.Context, userID, postID uint) error {
	if err := s.FollowService.WatchPost(ctx, userID, postID); err != nil {
		return err
	}
	s.invalidate(ctx, postID)
	return nil
}

func (s *cachedFollowService) UnwatchPost(ctx context.Context, userID, postID uint) error {
	if err := s.FollowService.UnwatchPost(ctx, userID, postID); err != nil {
		return err
	}
	s.invalidate(ctx, postID)
	return nil
}

func (s *cachedFollowService) WatcherCount(ctx context.Context, postID uint) (dto.WatcherCountResponse, error) {
	key := watcherCountKey(postID)
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil && cached != "" {
		var response dto.WatcherCountResponse
		if err := json.Unmarshal([]byte(cached), &response); err == nil {
			observability.CountCacheRequests().WithLabelValues("hit").Inc()
			return response, nil
		}
	}

	response, err := s.FollowService.WatcherCount(ctx, postID)
	if err != nil {
		observability.CountCacheRequests().WithLabelValues("error").Inc()
		return dto.WatcherCountResponse{}, err
	}

	if payload, err := json.Marshal(response); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Uint("post_id", postID).Msg("failed to write watcher count cache")
		}
	}
	observability.CountCacheRequests().WithLabelValues("miss").Inc()
	return response, nil
}

func (s *cachedFollowService) invalidate(ctx context.Context, postID uint) {
	if err := s.cache.Del(ctx, watcherCountKey(postID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("post_id", postID).Msg("failed to drop watcher count cache")
	}
}

func watcherCountKey(postID uint) string {
	return fmt.Sprintf("follows:watchers:v1:%d", postID)
}

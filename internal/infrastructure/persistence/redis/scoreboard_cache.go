package redis

import (
	"context"
	"errors"
	"time"

	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ScoreboardCache implements streak.ScoreboardCache using generic Redis Cache.
//
// The generation of a guild is the global counter plus the guild counter.
// Both only grow, so any invalidation changes the sum.
type ScoreboardCache struct {
	cache *Cache
	ttl   time.Duration
}

var _ streak.ScoreboardCache = (*ScoreboardCache)(nil)

// NewScoreboardCache creates a new ScoreboardCache.
func NewScoreboardCache(cache *Cache, ttl time.Duration) *ScoreboardCache {
	return &ScoreboardCache{cache: cache, ttl: ttl}
}

func generationKeys(guildID int64) []string {
	return []string{GlobalGenerationKey, GenerationKey(guildID)}
}

// Get returns cached standings with the generation they were read at.
func (s *ScoreboardCache) Get(ctx context.Context, guildID int64, limit int) ([]streak.Standing, int64, bool, error) {
	var standings []streak.Standing
	generation, err := s.cache.GetVersioned(ctx, ScoreboardKey(guildID, limit), generationKeys(guildID), &standings)
	if errors.Is(err, ErrCacheMiss) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, err
	}
	return standings, generation, true, nil
}

// Set stores standings unless the guild was invalidated after generation
// was read.
func (s *ScoreboardCache) Set(ctx context.Context, guildID int64, limit int, generation int64, standings []streak.Standing) error {
	if standings == nil {
		standings = []streak.Standing{}
	}
	stored, err := s.cache.SetIfVersion(ctx, ScoreboardKey(guildID, limit), generationKeys(guildID), generation, standings, s.ttl)
	if err != nil {
		return err
	}
	if !stored {
		logger.FromContext(ctx).Debug("stale scoreboard not cached",
			logger.GuildID(guildID),
			logger.Int64("generation", generation),
		)
	}
	return nil
}

// Invalidate advances the guild generation and drops its cached scoreboards.
func (s *ScoreboardCache) Invalidate(ctx context.Context, guildID int64) error {
	if err := s.cache.Incr(ctx, GenerationKey(guildID)); err != nil {
		return err
	}
	return s.cache.DeleteByPattern(ctx, ScoreboardPattern(guildID))
}

// InvalidateAll advances the global generation and drops every cached
// scoreboard.
func (s *ScoreboardCache) InvalidateAll(ctx context.Context) error {
	if err := s.cache.Incr(ctx, GlobalGenerationKey); err != nil {
		return err
	}
	return s.cache.DeleteByPattern(ctx, PrefixScoreboard+"*")
}

// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"fmt"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCORE QUERY
// Returns one user's standing in a guild. Users without a record get zeroes.
// ══════════════════════════════════════════════════════════════════════════════

// GetScoreQuery identifies the user.
type GetScoreQuery struct {
	UserID  int64
	GuildID int64
}

// ScoreDTO is the standing of one user.
type ScoreDTO struct {
	UserID         int64 `json:"user_id"`
	GuildID        int64 `json:"guild_id"`
	XP             int   `json:"xp"`
	Streak         int   `json:"streak"`
	MaxStreak      int   `json:"max_streak"`
	HasPostedToday bool  `json:"has_posted_today"`
	Exists         bool  `json:"exists"`
}

// GetScoreHandler handles the GetScoreQuery.
type GetScoreHandler struct {
	repo streak.Repository
}

// NewGetScoreHandler creates a new GetScoreHandler.
func NewGetScoreHandler(repo streak.Repository) *GetScoreHandler {
	return &GetScoreHandler{repo: repo}
}

// Handle executes the query.
func (h *GetScoreHandler) Handle(ctx context.Context, q GetScoreQuery) (*ScoreDTO, error) {
	key, err := streak.NewKey(q.UserID, q.GuildID)
	if err != nil {
		return nil, fmt.Errorf("get_score: %w", err)
	}

	dto := &ScoreDTO{UserID: key.UserID, GuildID: key.GuildID}

	rec, err := h.repo.Find(ctx, key)
	if err != nil {
		if shared.IsNotFound(err) {
			return dto, nil
		}
		return nil, fmt.Errorf("get_score: %w", err)
	}

	dto.XP = rec.XP
	dto.Streak = rec.Streak
	dto.MaxStreak = rec.MaxStreak
	dto.HasPostedToday = rec.HasPostedToday
	dto.Exists = true
	return dto, nil
}

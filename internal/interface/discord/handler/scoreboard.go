package handler

import (
	"context"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/interface/discord/presenter"
)

// ScoreboardHandler handles the scoreboard command.
type ScoreboardHandler struct {
	scoreboard *query.GetScoreboardHandler
}

// NewScoreboardHandler creates a new ScoreboardHandler.
func NewScoreboardHandler(scoreboard *query.GetScoreboardHandler) *ScoreboardHandler {
	return &ScoreboardHandler{scoreboard: scoreboard}
}

// Handle processes the scoreboard command. Arguments are ignored.
func (h *ScoreboardHandler) Handle(ctx context.Context, req Request) (*notification.Message, error) {
	dto, err := h.scoreboard.Handle(ctx, query.GetScoreboardQuery{GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}
	return reply(presenter.Scoreboard(dto)), nil
}

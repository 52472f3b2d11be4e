package handler

import (
	"context"
	"strings"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/interface/discord/presenter"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE HANDLER
// score [user] - the caller's standing, or the named member's.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreHandler handles the score command.
type ScoreHandler struct {
	scores    *query.GetScoreHandler
	directory notification.Directory
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scores *query.GetScoreHandler, directory notification.Directory) *ScoreHandler {
	return &ScoreHandler{scores: scores, directory: directory}
}

// Usage implements Usager.
func (h *ScoreHandler) Usage() string { return "score [member]" }

// Handle processes the score command.
func (h *ScoreHandler) Handle(ctx context.Context, req Request) (*notification.Message, error) {
	target, name := req.CallerID, req.CallerName

	if len(req.Args) > 0 {
		lookup := strings.Join(req.Args, " ")
		id, err := h.directory.FindMember(ctx, req.GuildID, lookup)
		if err != nil {
			return nil, err
		}
		target, name = id, lookup

		if display, err := h.directory.DisplayName(ctx, req.GuildID, id); err == nil {
			name = display
		} else {
			logger.FromContext(ctx).Debug("display name lookup failed", logger.UserID(id), logger.Err(err))
		}
	}

	dto, err := h.scores.Handle(ctx, query.GetScoreQuery{UserID: target, GuildID: req.GuildID})
	if err != nil {
		return nil, err
	}
	return reply(presenter.Score(name, dto)), nil
}

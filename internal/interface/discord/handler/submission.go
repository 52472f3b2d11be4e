package handler

import (
	"context"

	"github.com/dailydraw/streak-bot/internal/application/command"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION HANDLER
// Runs for every qualifying post, not for a command.
// ══════════════════════════════════════════════════════════════════════════════

// Submission is a qualifying post.
type Submission struct {
	GuildID    int64
	GuildName  string
	AuthorID   int64
	AuthorName string
}

// SubmissionHandler turns a qualifying post into a streak update.
type SubmissionHandler struct {
	submissions *command.ProcessSubmissionHandler
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissions *command.ProcessSubmissionHandler) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Handle records the post. A second post on the same day gets no reply.
func (h *SubmissionHandler) Handle(ctx context.Context, s Submission) (*notification.Message, error) {
	res, err := h.submissions.Handle(ctx, command.ProcessSubmissionCommand{
		UserID:  s.AuthorID,
		GuildID: s.GuildID,
	})
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case streak.OutcomeWelcomed:
		return reply(notification.Welcome()), nil
	case streak.OutcomeAwarded:
		return reply(notification.XPAwarded(h.submissions.BaseXP(), s.AuthorName, s.GuildName, res.Record.XP)), nil
	default:
		return nil, nil
	}
}

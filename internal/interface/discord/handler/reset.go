package handler

import (
	"context"
	"fmt"

	"github.com/dailydraw/streak-bot/internal/application/command"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
)

// ResetHandler handles daily_reset. A manual reset is always forced; the
// start and end banners are broadcast by the reset itself.
type ResetHandler struct {
	reset *command.DailyResetHandler
}

// NewResetHandler creates a new ResetHandler.
func NewResetHandler(reset *command.DailyResetHandler) *ResetHandler {
	return &ResetHandler{reset: reset}
}

// Handle processes the daily_reset command. Arguments are ignored.
func (h *ResetHandler) Handle(ctx context.Context, req Request) (*notification.Message, error) {
	summary, err := h.reset.Handle(ctx, command.DailyResetCommand{
		Force:        true,
		Trigger:      command.TriggerCommand,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		return nil, err
	}
	return reply(notification.Info(fmt.Sprintf(
		"Reset for %s done: %d kept their streak, %d lost it.",
		summary.Day, summary.Kept, summary.Missed,
	))), nil
}

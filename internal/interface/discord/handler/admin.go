package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/dailydraw/streak-bot/internal/application/command"
	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN OVERRIDE HANDLER
// set_xp <member> <amount>, set_streak <member> <amount>, set_safe <member>
// ══════════════════════════════════════════════════════════════════════════════

// OverrideHandler handles one of the admin override commands.
type OverrideHandler struct {
	action    command.OverrideAction
	overrides *command.AdminOverrideHandler
}

// NewOverrideHandler creates a handler for action.
func NewOverrideHandler(action command.OverrideAction, overrides *command.AdminOverrideHandler) *OverrideHandler {
	return &OverrideHandler{action: action, overrides: overrides}
}

// Usage implements Usager.
func (h *OverrideHandler) Usage() string {
	if h.action == command.ActionSetSafe {
		return string(h.action) + " <member>"
	}
	return string(h.action) + " <member> <amount>"
}

// Handle processes the command.
func (h *OverrideHandler) Handle(ctx context.Context, req Request) (*notification.Message, error) {
	cmd := command.AdminOverrideCommand{
		Action:       h.action,
		GuildID:      req.GuildID,
		Capabilities: req.Capabilities,
	}

	if h.action == command.ActionSetSafe {
		cmd.TargetQuery = strings.Join(req.Args, " ")
	} else {
		name, amount, ok := splitAmount(req.Args)
		if !ok {
			// Denial outranks a usage hint.
			if err := req.Capabilities.Require(access.ManageScores); err != nil {
				return nil, err
			}
			return nil, shared.InvalidInput(string(h.action), "expected a member and an integer amount")
		}
		cmd.TargetQuery, cmd.Amount = name, amount
	}

	res, err := h.overrides.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	rec := res.Record
	return reply(notification.Info(fmt.Sprintf(
		"Updated %s: xp %d, streak %d, max streak %d, has posted %t.",
		cmd.TargetQuery, rec.XP, rec.Streak, rec.MaxStreak, rec.HasPostedToday,
	))), nil
}

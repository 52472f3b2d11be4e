package command

import (
	"context"
	"fmt"

	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN OVERRIDE COMMAND
// Lets moderators overwrite xp or streak, or protect a streak from the next
// reset. Targets must already have a record.
// ══════════════════════════════════════════════════════════════════════════════

// OverrideAction names an admin override.
type OverrideAction string

const (
	ActionSetXP     OverrideAction = "set_xp"
	ActionSetStreak OverrideAction = "set_streak"
	ActionSetSafe   OverrideAction = "set_safe"
)

// AdminOverrideCommand contains the data of an override.
type AdminOverrideCommand struct {
	Action  OverrideAction
	GuildID int64

	// Capabilities of the caller.
	Capabilities access.Set

	// TargetID is set when the target was mentioned; otherwise TargetQuery
	// is resolved through the member directory.
	TargetID    int64
	TargetQuery string

	// Amount is ignored by set_safe.
	Amount int
}

// Validate validates the command.
func (c AdminOverrideCommand) Validate() error {
	switch c.Action {
	case ActionSetXP, ActionSetStreak:
		if c.Amount < 0 {
			return shared.InvalidInput(string(c.Action), "amount must be a non-negative integer")
		}
	case ActionSetSafe:
	default:
		return shared.InvalidInput("admin_override", fmt.Sprintf("unknown action %q", c.Action))
	}

	if c.GuildID <= 0 {
		return shared.ErrInvalidGuildID
	}
	if c.TargetID == 0 && c.TargetQuery == "" {
		return shared.InvalidInput(string(c.Action), "target is required")
	}
	return nil
}

// AdminOverrideResult contains the updated record.
type AdminOverrideResult struct {
	Action OverrideAction
	Record *streak.Record
}

// AdminOverrideHandler handles the AdminOverrideCommand.
type AdminOverrideHandler struct {
	repo      streak.Repository
	locker    streak.Locker
	cache     streak.ScoreboardCache
	directory notification.Directory
}

// NewAdminOverrideHandler creates a new AdminOverrideHandler.
func NewAdminOverrideHandler(
	repo streak.Repository,
	locker streak.Locker,
	cache streak.ScoreboardCache,
	directory notification.Directory,
) *AdminOverrideHandler {
	if cache == nil {
		cache = streak.NopScoreboardCache{}
	}
	return &AdminOverrideHandler{
		repo:      repo,
		locker:    locker,
		cache:     cache,
		directory: directory,
	}
}

// Handle executes the command. A caller without ManageScores is denied
// before anything is read.
func (h *AdminOverrideHandler) Handle(ctx context.Context, cmd AdminOverrideCommand) (*AdminOverrideResult, error) {
	op := string(cmd.Action)

	if err := cmd.Capabilities.Require(access.ManageScores); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	targetID := cmd.TargetID
	if targetID == 0 {
		if h.directory == nil {
			return nil, fmt.Errorf("%s: %w", op, shared.ErrMemberNotFound)
		}
		id, err := h.directory.FindMember(ctx, cmd.GuildID, cmd.TargetQuery)
		if err != nil {
			return nil, fmt.Errorf("%s: resolve %q: %w", op, cmd.TargetQuery, err)
		}
		targetID = id
	}

	key, err := streak.NewKey(targetID, cmd.GuildID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := logger.FromContext(ctx).With(
		logger.Operation(op),
		logger.UserID(key.UserID),
		logger.GuildID(key.GuildID),
	)

	unlock, err := h.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, shared.StoreUnavailable("Lock", err))
	}
	defer unlock()

	rec, err := h.repo.Update(ctx, key, func(current *streak.Record) (*streak.Record, error) {
		if current == nil {
			return nil, shared.ErrRecordNotFound
		}
		if err := apply(current, cmd); err != nil {
			return nil, err
		}
		return current, nil
	})
	if err != nil {
		if !shared.IsNotFound(err) {
			log.Error("admin override failed", logger.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin override applied",
		logger.Int("amount", cmd.Amount),
		logger.Streak(rec.Streak),
		logger.XPAmount(rec.XP),
	)

	if err := h.cache.Invalidate(ctx, key.GuildID); err != nil {
		log.Warn("scoreboard cache invalidation failed", logger.Err(err))
	}

	return &AdminOverrideResult{Action: cmd.Action, Record: rec}, nil
}

func apply(rec *streak.Record, cmd AdminOverrideCommand) error {
	switch cmd.Action {
	case ActionSetXP:
		return rec.SetXP(cmd.Amount)
	case ActionSetStreak:
		return rec.SetStreak(cmd.Amount)
	default:
		rec.MarkSafe()
		return nil
	}
}

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/pkg/logger"
	"github.com/dailydraw/streak-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY RESET COMMAND
// Zeroes the streak of everyone who did not post since the last reset and
// clears the posted flag, at most once per calendar day unless forced.
// ══════════════════════════════════════════════════════════════════════════════

// ResetTrigger says who started a reset run.
type ResetTrigger string

const (
	// TriggerSchedule - the cron job.
	TriggerSchedule ResetTrigger = "schedule"
	// TriggerCommand - an administrator in chat. Requires ForceReset.
	TriggerCommand ResetTrigger = "command"
	// TriggerCLI - the operator from the command line.
	TriggerCLI ResetTrigger = "cli"
)

// DailyResetCommand contains the data for one reset run.
type DailyResetCommand struct {
	Force   bool
	Trigger ResetTrigger

	// Capabilities of the caller, checked for TriggerCommand only.
	Capabilities access.Set

	// RequestedAt defaults to now if zero. Its calendar day in the configured
	// timezone is the reset day.
	RequestedAt time.Time
}

// DailyResetHandler handles the DailyResetCommand.
type DailyResetHandler struct {
	repo     streak.Repository
	cache    streak.ScoreboardCache
	notifier notification.Notifier
	clock    *timeutil.Clock
}

// NewDailyResetHandler creates a new DailyResetHandler. notifier may be nil
// when no chat connection exists (CLI runs).
func NewDailyResetHandler(
	repo streak.Repository,
	cache streak.ScoreboardCache,
	notifier notification.Notifier,
	clock *timeutil.Clock,
) *DailyResetHandler {
	if cache == nil {
		cache = streak.NopScoreboardCache{}
	}
	if clock == nil {
		clock = timeutil.NewClock(time.UTC)
	}
	return &DailyResetHandler{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		clock:    clock,
	}
}

// Handle executes the command.
func (h *DailyResetHandler) Handle(ctx context.Context, cmd DailyResetCommand) (*streak.ResetSummary, error) {
	if cmd.Trigger == TriggerCommand {
		if err := cmd.Capabilities.Require(access.ForceReset); err != nil {
			return nil, fmt.Errorf("daily_reset: %w", err)
		}
	}

	now := cmd.RequestedAt
	if now.IsZero() {
		now = h.clock.Now()
	}
	day := timeutil.DayKey(now, h.clock.Location())

	log := logger.FromContext(ctx).With(
		logger.Operation("daily_reset"),
		logger.String("day", day),
		logger.String("trigger", string(cmd.Trigger)),
		logger.Bool("forced", cmd.Force),
	)

	if !cmd.Force {
		applied, err := h.repo.ResetApplied(ctx, day)
		if err != nil {
			log.Error("reset marker lookup failed", logger.Err(err))
			return nil, fmt.Errorf("daily_reset: %w", err)
		}
		if applied {
			log.Info("daily reset already applied, skipping")
			return &streak.ResetSummary{Day: day, Skipped: true}, nil
		}
	}

	h.broadcast(ctx, log, notification.ResetStarted())

	summary, err := h.repo.Reset(ctx, streak.ResetRequest{
		Day:       day,
		RunID:     uuid.NewString(),
		Force:     cmd.Force,
		AppliedAt: now,
	})
	if err != nil {
		log.Error("daily reset failed", logger.Err(err))
		return nil, fmt.Errorf("daily_reset: %w", err)
	}
	if summary.Skipped {
		// Another process applied the day between the lookup and the reset.
		// The start banner is already out, so close it.
		log.Info("daily reset applied concurrently, skipping")
		h.broadcast(ctx, log, notification.ResetFinished())
		return summary, nil
	}

	log.Info("daily reset applied",
		logger.String("run_id", summary.RunID),
		logger.Int("total", summary.Total),
		logger.Int("kept", summary.Kept),
		logger.Int("missed", summary.Missed),
	)

	h.broadcast(ctx, log, notification.ResetFinished())

	if err := h.cache.InvalidateAll(ctx); err != nil {
		log.Warn("scoreboard cache invalidation failed", logger.Err(err))
	}

	return summary, nil
}

// broadcast delivers a banner; failures never fail the reset.
func (h *DailyResetHandler) broadcast(ctx context.Context, log *logger.Logger, msg notification.Message) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Broadcast(ctx, msg); err != nil {
		log.Warn("reset banner not delivered", logger.String("kind", string(msg.Kind)), logger.Err(err))
	}
}

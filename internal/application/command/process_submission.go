// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/pkg/logger"
	"github.com/dailydraw/streak-bot/pkg/retry"
	"github.com/dailydraw/streak-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS SUBMISSION COMMAND
// Applies one qualifying post: creates the record on the first post, extends
// the streak once per day, ignores repeats until the next reset.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessSubmissionCommand contains the data of a qualifying post.
type ProcessSubmissionCommand struct {
	UserID  int64
	GuildID int64

	// SubmittedAt defaults to now if zero.
	SubmittedAt time.Time
}

// Validate validates the command.
func (c ProcessSubmissionCommand) Validate() error {
	_, err := streak.NewKey(c.UserID, c.GuildID)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProcessSubmissionHandler handles the ProcessSubmissionCommand.
type ProcessSubmissionHandler struct {
	repo    streak.Repository
	locker  streak.Locker
	cache   streak.ScoreboardCache
	retrier *retry.Retrier

	baseXP int
	clock  *timeutil.Clock
}

// ProcessSubmissionConfig contains configuration for the handler.
type ProcessSubmissionConfig struct {
	BaseXP int
	Clock  *timeutil.Clock
}

// NewProcessSubmissionHandler creates a new ProcessSubmissionHandler.
func NewProcessSubmissionHandler(
	repo streak.Repository,
	locker streak.Locker,
	cache streak.ScoreboardCache,
	config ProcessSubmissionConfig,
) *ProcessSubmissionHandler {
	if config.BaseXP <= 0 {
		config.BaseXP = streak.DefaultBaseXP
	}
	if config.Clock == nil {
		config.Clock = timeutil.NewClock(time.UTC)
	}
	if cache == nil {
		cache = streak.NopScoreboardCache{}
	}

	return &ProcessSubmissionHandler{
		repo:    repo,
		locker:  locker,
		cache:   cache,
		retrier: retry.ConflictRetrier(isConflict),
		baseXP:  config.BaseXP,
		clock:   config.Clock,
	}
}

// BaseXP returns the XP awarded per qualifying day.
func (h *ProcessSubmissionHandler) BaseXP() int {
	return h.baseXP
}

// Handle executes the command.
func (h *ProcessSubmissionHandler) Handle(ctx context.Context, cmd ProcessSubmissionCommand) (*streak.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("process_submission: %w", err)
	}

	key := streak.Key{UserID: cmd.UserID, GuildID: cmd.GuildID}
	now := cmd.SubmittedAt
	if now.IsZero() {
		now = h.clock.Now()
	}

	log := logger.FromContext(ctx).With(logger.UserID(key.UserID), logger.GuildID(key.GuildID))

	unlock, err := h.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("process_submission: %w", shared.StoreUnavailable("Lock", err))
	}
	defer unlock()

	var result streak.Result
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		rec, err := h.repo.Update(ctx, key, func(current *streak.Record) (*streak.Record, error) {
			if current == nil {
				result.Outcome = streak.OutcomeWelcomed
				return streak.NewRecord(key, now, h.baseXP), nil
			}

			result.Outcome = current.Submit(now, h.baseXP)
			if result.Outcome == streak.OutcomeAlreadyPosted {
				return nil, nil
			}
			return current, nil
		})
		if err != nil {
			return err
		}
		result.Record = rec
		return nil
	})
	if err != nil {
		log.Error("submission not applied", logger.Err(err))
		return nil, fmt.Errorf("process_submission: %w", err)
	}

	log.Info("submission processed",
		logger.String("outcome", result.Outcome.String()),
		logger.Streak(result.Record.Streak),
		logger.XPAmount(result.Record.XP),
	)

	if result.Outcome != streak.OutcomeAlreadyPosted {
		if err := h.cache.Invalidate(ctx, key.GuildID); err != nil {
			log.Warn("scoreboard cache invalidation failed", logger.Err(err))
		}
	}

	return &result, nil
}

func isConflict(err error) bool {
	return errors.Is(err, shared.ErrConcurrentModification)
}

// Package jobs contains the scheduled jobs of the streak bot.
package jobs

import (
	"context"

	"github.com/dailydraw/streak-bot/internal/application/command"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY RESET JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyResetJobName is the scheduler name of the reset job.
const DailyResetJobName = "daily_reset"

// ResetRunner runs one reset. Implemented by command.DailyResetHandler.
type ResetRunner interface {
	Handle(ctx context.Context, cmd command.DailyResetCommand) (*streak.ResetSummary, error)
}

// DailyResetJob runs the unforced daily reset on schedule. The day marker
// makes a second run on the same day a no-op, so overlapping schedules or
// restarts around the reset time are harmless.
type DailyResetJob struct {
	runner ResetRunner
}

// NewDailyResetJob creates the job.
func NewDailyResetJob(runner ResetRunner) *DailyResetJob {
	return &DailyResetJob{runner: runner}
}

// Name returns the job name.
func (j *DailyResetJob) Name() string {
	return DailyResetJobName
}

// Description returns a human-readable description of the job.
func (j *DailyResetJob) Description() string {
	return "Zero missed streaks and clear posted flags for the new day"
}

// Run executes the job.
func (j *DailyResetJob) Run(ctx context.Context) error {
	_, err := j.runner.Handle(ctx, command.DailyResetCommand{Trigger: command.TriggerSchedule})
	return err
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	ce, err := ParseCronExpression("0 1 * * *")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ce.minutes)
	assert.Equal(t, []int{1}, ce.hours)
	assert.Len(t, ce.days, 31)
	assert.Equal(t, "0 1 * * *", ce.String())

	ce, err = ParseCronExpression("*/15 9-17/4 1,15 * 1-5")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 15, 30, 45}, ce.minutes)
	assert.Equal(t, []int{9, 13, 17}, ce.hours)
	assert.Equal(t, []int{1, 15}, ce.days)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ce.weekdays)

	ce, err = ParseCronExpression("5,1-3 * * * *")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 5}, ce.minutes)
}

func TestParseCronExpression_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * 13 *",
		"* * * * 7",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
		"1,,2 * * * *",
	} {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, expr)
	}

	assert.Panics(t, func() { MustParseCronExpression("bad") })
}

func TestCronExpression_NextDailyReset(t *testing.T) {
	ce := MustParseCronExpression(DailyResetTime)

	// Before 01:00 the same day fires.
	after := time.Date(2024, 3, 9, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC), ce.Next(after))

	// Exactly at 01:00 the next day fires.
	after = time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC), ce.Next(after))
}

func TestCronExpression_NextInConfiguredTimezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	ce := MustParseCronExpression(DailyResetTime)

	// 23:30 UTC on the 9th is 00:30 on the 10th in Berlin (CET, UTC+1).
	after := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC).In(berlin)
	next := ce.Next(after)

	assert.Equal(t, time.Date(2024, 3, 10, 1, 0, 0, 0, berlin), next)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), next.UTC())
}

func TestCronExpression_NextAcrossMonthEnd(t *testing.T) {
	ce := MustParseCronExpression("0 0 1 * *")
	after := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), ce.Next(after))
}

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string        { return "counting" }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return j.err
}

func TestCronScheduler_AddJobAndRunNow(t *testing.T) {
	now := time.Date(2024, 3, 9, 0, 30, 0, 0, time.UTC)
	cs := NewCronScheduler(
		WithLocation(time.UTC),
		WithJobTimeout(time.Minute),
		WithNow(func() time.Time { return now }),
	)

	job := &countingJob{}
	require.NoError(t, cs.AddJob(DailyResetTime, job))
	assert.ErrorIs(t, cs.AddJob(DailyResetTime, job), ErrJobAlreadyExists)
	assert.Error(t, cs.AddJob("bad", &countingJob{}))
	assert.ErrorIs(t, cs.AddJob(EveryHour, nil), ErrNilJob)

	status, ok := cs.GetJobStatus("counting")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC), status.NextRun)

	result, err := cs.RunNow(context.Background(), "counting")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(1), job.runs.Load())

	status, _ = cs.GetJobStatus("counting")
	assert.Equal(t, int64(1), status.RunCount)
	require.NotNil(t, status.LastResult)

	_, err = cs.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCronScheduler_RunNowReportsFailure(t *testing.T) {
	cs := NewCronScheduler(WithJobTimeout(time.Second))
	job := &countingJob{err: errors.New("store down")}
	require.NoError(t, cs.AddJob(EveryMinute, job))

	result, err := cs.RunNow(context.Background(), "counting")
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestCronScheduler_RunsDueJobs(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Date(2024, 3, 9, 0, 59, 0, 0, time.UTC).UnixNano())
	now := func() time.Time { return time.Unix(0, clock.Load()).UTC() }

	cs := NewCronScheduler(WithNow(now), WithJobTimeout(time.Second))
	job := &countingJob{}
	require.NoError(t, cs.AddJob(DailyResetTime, job))

	cs.checkAndRunJobs(context.Background())
	cs.wg.Wait()
	assert.Equal(t, int32(0), job.runs.Load())

	clock.Store(time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC).UnixNano())
	cs.checkAndRunJobs(context.Background())
	cs.wg.Wait()
	assert.Equal(t, int32(1), job.runs.Load())

	// Rescheduled for the next day.
	cs.checkAndRunJobs(context.Background())
	cs.wg.Wait()
	assert.Equal(t, int32(1), job.runs.Load())

	status, _ := cs.GetJobStatus("counting")
	assert.Equal(t, time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC), status.NextRun)
}

func TestCronScheduler_StartStop(t *testing.T) {
	cs := NewCronScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, cs.Start(ctx))
	assert.ErrorIs(t, cs.Start(ctx), ErrSchedulerAlreadyRunning)
	cs.Stop()
	cs.Stop()
}

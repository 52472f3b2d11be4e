// Package scheduler runs the bot's periodic jobs on cron schedules.
// Jobs are evaluated in the configured timezone and receive a context that
// is cancelled when the scheduler stops.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerAlreadyRunning is returned when Start is called on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// CronJob represents a scheduled job with its cron expression.
type CronJob struct {
	Name       string
	Expression *CronExpression
	Job        Job
	LastRun    time.Time
	NextRun    time.Time
	RunCount   int64
	LastResult *JobResult
	Enabled    bool
}

// CronScheduler manages cron-based job scheduling.
type CronScheduler struct {
	jobs       map[string]*CronJob
	mu         sync.RWMutex
	log        *logger.Logger
	location   *time.Location
	jobTimeout time.Duration
	now        func() time.Time
	running    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// CronOption configures the CronScheduler.
type CronOption func(*CronScheduler)

// WithLocation sets the timezone for cron expressions.
func WithLocation(loc *time.Location) CronOption {
	return func(cs *CronScheduler) {
		if loc != nil {
			cs.location = loc
		}
	}
}

// WithLogger sets the logger for the cron scheduler.
func WithLogger(log *logger.Logger) CronOption {
	return func(cs *CronScheduler) {
		if log != nil {
			cs.log = log
		}
	}
}

// WithJobTimeout bounds every job run. Zero means no bound beyond the
// scheduler's context.
func WithJobTimeout(d time.Duration) CronOption {
	return func(cs *CronScheduler) {
		cs.jobTimeout = d
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) CronOption {
	return func(cs *CronScheduler) {
		if now != nil {
			cs.now = now
		}
	}
}

// NewCronScheduler creates a new cron-based scheduler.
func NewCronScheduler(opts ...CronOption) *CronScheduler {
	cs := &CronScheduler{
		jobs:     make(map[string]*CronJob),
		log:      logger.Nop(),
		location: time.UTC,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cs)
	}
	cs.log = cs.log.With(logger.Component("scheduler"))

	return cs
}

// Location returns the timezone schedules are evaluated in.
func (cs *CronScheduler) Location() *time.Location {
	return cs.location
}

// AddJob adds a job with a cron expression.
func (cs *CronScheduler) AddJob(cronExpr string, job Job) error {
	if job == nil {
		return ErrNilJob
	}

	expr, err := ParseCronExpression(cronExpr)
	if err != nil {
		return fmt.Errorf("failed to parse cron expression: %w", err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	name := job.Name()
	if _, exists := cs.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	cj := &CronJob{
		Name:       name,
		Expression: expr,
		Job:        job,
		NextRun:    expr.Next(cs.now().In(cs.location)),
		Enabled:    true,
	}
	cs.jobs[name] = cj

	cs.log.Info("cron job added",
		logger.String("job", name),
		logger.String("description", job.Description()),
		logger.String("expression", expr.String()),
		logger.Time("next_run", cj.NextRun),
	)

	return nil
}

// GetJobStatus returns a copy of a job's state.
func (cs *CronScheduler) GetJobStatus(name string) (*CronJob, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	job, exists := cs.jobs[name]
	if !exists {
		return nil, false
	}

	jobCopy := *job
	return &jobCopy, true
}

// Start begins the cron scheduler loop. It returns immediately; the loop
// ends when ctx is cancelled or Stop is called.
func (cs *CronScheduler) Start(ctx context.Context) error {
	cs.mu.Lock()
	if cs.running {
		cs.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	cs.running = true
	cs.stopCh = make(chan struct{})
	cs.mu.Unlock()

	cs.log.Info("cron scheduler started", logger.String("timezone", cs.location.String()))

	cs.wg.Add(1)
	go cs.run(ctx)

	return nil
}

// Stop stops the loop and waits for running jobs to return.
func (cs *CronScheduler) Stop() {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	cs.running = false
	close(cs.stopCh)
	cs.mu.Unlock()

	cs.wg.Wait()
	cs.log.Info("cron scheduler stopped")
}

// RunNow executes a registered job synchronously, outside its schedule.
func (cs *CronScheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	cs.mu.RLock()
	job, exists := cs.jobs[name]
	cs.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	result := cs.execute(ctx, job)
	return &result, result.Error
}

func (cs *CronScheduler) run(ctx context.Context) {
	defer cs.wg.Done()

	// Tick at the start of each minute.
	timer := time.NewTimer(cs.timeUntilNextMinute())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			cs.log.Info("cron scheduler context cancelled")
			return

		case <-cs.stopCh:
			return

		case <-timer.C:
			timer.Reset(cs.timeUntilNextMinute())
			cs.checkAndRunJobs(ctx)
		}
	}
}

func (cs *CronScheduler) timeUntilNextMinute() time.Duration {
	now := cs.now()
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}

func (cs *CronScheduler) checkAndRunJobs(ctx context.Context) {
	now := cs.now().In(cs.location)

	cs.mu.Lock()
	var dueJobs []*CronJob
	for _, job := range cs.jobs {
		if job.Enabled && !job.NextRun.After(now) {
			job.NextRun = job.Expression.Next(now)
			dueJobs = append(dueJobs, job)
		}
	}
	cs.mu.Unlock()

	for _, job := range dueJobs {
		cs.wg.Add(1)
		go func(j *CronJob) {
			defer cs.wg.Done()
			cs.execute(ctx, j)
		}(job)
	}
}

// execute runs a job with the configured timeout and records the result.
func (cs *CronScheduler) execute(ctx context.Context, job *CronJob) JobResult {
	if cs.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cs.jobTimeout)
		defer cancel()
	}

	log := cs.log.With(logger.String("job", job.Name))
	ctx = logger.WithContext(ctx, log)

	started := cs.now()
	log.Info("running cron job")

	err := job.Job.Run(ctx)

	completed := cs.now()
	result := JobResult{
		JobName:     job.Name,
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started),
		Success:     err == nil,
		Error:       err,
	}

	cs.mu.Lock()
	job.LastRun = started
	job.RunCount++
	job.LastResult = &result
	cs.mu.Unlock()

	if err != nil {
		log.Error("cron job failed", logger.Latency(result.Duration), logger.Err(err))
	} else {
		log.Info("cron job completed", logger.Latency(result.Duration))
	}

	return result
}

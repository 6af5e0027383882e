// Package scheduler runs the monitor's background jobs: the portal polling
// cycle on a (runtime-adjustable) interval and the daily digest on a cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Job is a unit of scheduled work.
type Job interface {
	// Name identifies the job; must be unique within a scheduler.
	Name() string

	// Run executes the job. The context is cancelled on scheduler stop.
	Run(ctx context.Context) error

	// Description is shown in logs and job listings.
	Description() string
}

// Schedule decides when a job fires.
type Schedule interface {
	// Next returns the first firing time strictly after t.
	Next(t time.Time) time.Time

	String() string
}

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be nil")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)

// JobResult records one job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	Logger *slog.Logger

	// Timezone for schedule evaluation. Cron firing hours are interpreted
	// in this zone.
	Timezone *time.Location

	// MaxHistorySize bounds the retained execution history.
	MaxHistorySize int
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:         slog.Default(),
		Timezone:       time.UTC,
		MaxHistorySize: 1000,
	}
}

// entry is a registered job plus its schedule bookkeeping.
type entry struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	lastRun  time.Time
	runs     int64
	failures int64
}

// Scheduler fires registered jobs when their schedules come due. The check
// loop ticks once a second, which keeps dynamic-interval schedules
// responsive without a wake-up recalculation on every interval change.
type Scheduler struct {
	logger   *slog.Logger
	timezone *time.Location
	maxHist  int

	mu      sync.Mutex
	entries map[string]*entry
	last    map[string]*JobResult
	history []JobResult
	running bool
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler from config.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 1000
	}

	return &Scheduler{
		logger:   config.Logger.With("component", "scheduler"),
		timezone: config.Timezone,
		maxHist:  config.MaxHistorySize,
		entries:  make(map[string]*entry),
		last:     make(map[string]*JobResult),
	}
}

// Register adds a job with its schedule. The first firing time is computed
// immediately.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}
	s.entries[name] = e

	s.logger.Info("job registered",
		"job", name,
		"schedule", schedule.String(),
		"next_run", e.nextRun.Format(time.RFC3339))
	return nil
}

// Start launches the check loop. Non-blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.started = time.Now()
	jobs := len(s.entries)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", jobs)

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop cancels the loop and waits for in-flight jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped", "uptime", time.Since(s.started).String())
	return nil
}

// IsRunning reports whether the check loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

// fireDue starts every job whose nextRun has passed. The next firing time
// is advanced before the job runs so a slow job cannot pile up overlapping
// executions of itself within one schedule step.
func (s *Scheduler) fireDue() {
	now := time.Now().In(s.timezone)

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.nextRun.IsZero() && now.After(e.nextRun) {
			e.lastRun = now
			e.nextRun = e.schedule.Next(now)
			e.runs++
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			s.execute(s.ctx, e)
		}(e)
	}
}

// execute runs one job and records the outcome. A panicking job is caught
// and recorded as a failure; one broken job must not kill the loop.
func (s *Scheduler) execute(ctx context.Context, e *entry) {
	name := e.job.Name()
	startedAt := time.Now()
	s.logger.Info("job started", "job", name)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
			}
		}()
		return e.job.Run(ctx)
	}()

	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Success:     err == nil,
		Error:       err,
	}
	result.Duration = result.CompletedAt.Sub(startedAt)

	s.mu.Lock()
	if err != nil {
		e.failures++
	}
	s.last[name] = &result
	s.history = append(s.history, result)
	if len(s.history) > s.maxHist {
		s.history = s.history[len(s.history)-s.maxHist:]
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", name, "duration", result.Duration.String(), "error", err)
	} else {
		s.logger.Info("job completed", "job", name, "duration", result.Duration.String())
	}
}

// RunNow executes a job immediately, outside its schedule. The result is
// recorded in the history like a scheduled run.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.Lock()
	e, ok := s.entries[jobName]
	if ok {
		e.runs++
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	s.logger.Info("manual job run", "job", jobName)
	s.execute(ctx, e)

	s.mu.Lock()
	result := s.last[jobName]
	s.mu.Unlock()

	if result != nil && result.Error != nil {
		return result, result.Error
	}
	return result, nil
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

// GetJobInfo returns the state of one job.
func (s *Scheduler) GetJobInfo(jobName string) (*JobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[jobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	return s.infoLocked(jobName, e), nil
}

// ListJobs returns the state of every registered job.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		infos = append(infos, *s.infoLocked(name, e))
	}
	return infos
}

func (s *Scheduler) infoLocked(name string, e *entry) *JobInfo {
	return &JobInfo{
		Name:        name,
		Description: e.job.Description(),
		Schedule:    e.schedule.String(),
		LastRun:     e.lastRun,
		NextRun:     e.nextRun,
		RunCount:    e.runs,
		FailCount:   e.failures,
		LastResult:  s.last[name],
	}
}

// GetHistory returns up to limit most recent execution results.
func (s *Scheduler) GetHistory(limit int) []JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

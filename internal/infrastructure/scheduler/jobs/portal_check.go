// Package jobs contains implementations of scheduled jobs for the portal monitor.
package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/infrastructure/scheduler"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTAL CHECK JOB
// ══════════════════════════════════════════════════════════════════════════════

// PortalCheckJob runs one polling cycle against the academic portal: fetch
// attendance and marks, diff against the previous cycle and notify on change.
// The cycle itself lives in the poller; the job only adds scheduling, a
// per-run timeout and run statistics.
type PortalCheckJob struct {
	poller *monitor.Poller
	logger *slog.Logger
	config PortalCheckConfig

	lastRunStats atomic.Value // *PortalCheckStats
}

// PortalCheckConfig contains configuration for the portal check job.
type PortalCheckConfig struct {
	// Timeout is the maximum duration for a single polling cycle.
	Timeout time.Duration
}

// DefaultPortalCheckConfig returns sensible defaults.
func DefaultPortalCheckConfig() PortalCheckConfig {
	return PortalCheckConfig{
		Timeout: 5 * time.Minute,
	}
}

// PortalCheckStats contains statistics from the last polling cycle.
type PortalCheckStats struct {
	StartedAt           time.Time
	CompletedAt         time.Time
	Duration            time.Duration
	Success             bool
	Error               error
	ConsecutiveFailures int
	HasBaseline         bool
}

// NewPortalCheckJob creates a new portal check job.
func NewPortalCheckJob(poller *monitor.Poller, config PortalCheckConfig, logger *slog.Logger) *PortalCheckJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	return &PortalCheckJob{
		poller: poller,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *PortalCheckJob) Name() string {
	return "portal_check"
}

// Description returns a human-readable description.
func (j *PortalCheckJob) Description() string {
	return "Polls the academic portal and alerts on attendance or marks changes"
}

// Schedule returns the schedule for this job. The interval follows the
// poller's configured poll interval, so an /interval command takes effect
// on the next scheduling decision without re-registering the job.
func (j *PortalCheckJob) Schedule() scheduler.Schedule {
	return scheduler.NewDynamicIntervalSchedule(j.poller.Interval)
}

// Run executes one polling cycle.
func (j *PortalCheckJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	err := j.poller.RunCycle(ctx)

	status := j.poller.Status()
	stats := &PortalCheckStats{
		StartedAt:           startedAt,
		CompletedAt:         time.Now(),
		Success:             err == nil,
		Error:               err,
		ConsecutiveFailures: status.Failures,
		HasBaseline:         status.HasBaseline,
	}
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	return err
}

// LastRunStats returns statistics from the last polling cycle.
func (j *PortalCheckJob) LastRunStats() *PortalCheckStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*PortalCheckStats)
}

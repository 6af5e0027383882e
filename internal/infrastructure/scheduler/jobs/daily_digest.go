package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/portal-watch/portal-watch/internal/infrastructure/scheduler"
	"github.com/portal-watch/portal-watch/pkg/timeutil"
)

// SummaryProvider renders the current attendance and marks state as
// plain-text summaries.
type SummaryProvider interface {
	FormattedAttendanceSummary(ctx context.Context) (string, error)
	FormattedMarksSummary(ctx context.Context) (string, error)
}

// DigestSender delivers the rendered digest to the owner.
type DigestSender interface {
	SendDigest(ctx context.Context, text string) error
}

// DailyDigestConfig tunes the evening digest.
type DailyDigestConfig struct {
	// SendTime is the hour of day (0-23), in Timezone, the digest goes out.
	SendTime int

	// Timezone anchors SendTime; nil falls back to the portal timezone.
	Timezone *time.Location

	// EnableDigest turns the whole job into a no-op when false.
	EnableDigest bool

	// IncludeAttendance and IncludeMarks select the digest sections.
	IncludeAttendance bool
	IncludeMarks      bool

	// Timeout bounds one digest run end to end.
	Timeout time.Duration
}

// DefaultDailyDigestConfig sends both sections at 21:00 portal time.
func DefaultDailyDigestConfig() DailyDigestConfig {
	return DailyDigestConfig{
		SendTime:          21,
		Timezone:          timeutil.PortalTZ,
		EnableDigest:      true,
		IncludeAttendance: true,
		IncludeMarks:      true,
		Timeout:           5 * time.Minute,
	}
}

// DailyDigestStats describes the most recent digest attempt.
type DailyDigestStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Sent        bool
	Error       error
}

// DailyDigestJob sends a once-a-day summary of attendance and marks to the
// owner chat. Unlike the polling cycle it fires regardless of whether
// anything changed, so a quiet day still produces one message.
type DailyDigestJob struct {
	service SummaryProvider
	sender  DigestSender
	logger  *slog.Logger
	config  DailyDigestConfig

	last atomic.Value // *DailyDigestStats
}

// NewDailyDigestJob wires the digest job to its summary source and sender.
func NewDailyDigestJob(service SummaryProvider, sender DigestSender, config DailyDigestConfig, logger *slog.Logger) *DailyDigestJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = timeutil.PortalTZ
	}
	return &DailyDigestJob{
		service: service,
		sender:  sender,
		logger:  logger,
		config:  config,
	}
}

func (j *DailyDigestJob) Name() string { return "daily_digest" }

func (j *DailyDigestJob) Description() string {
	return "Sends a daily attendance and marks summary to the owner chat"
}

// Schedule fires once a day at the configured hour.
func (j *DailyDigestJob) Schedule() scheduler.Schedule {
	hour := j.config.SendTime
	if hour < 0 || hour > 23 {
		hour = 21
	}
	return scheduler.MustParseCronExpression(fmt.Sprintf("0 %d * * *", hour))
}

// Run builds and sends one digest.
func (j *DailyDigestJob) Run(ctx context.Context) error {
	stats := &DailyDigestStats{StartedAt: time.Now()}
	defer func() {
		stats.CompletedAt = time.Now()
		stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
		j.last.Store(stats)
	}()

	if !j.config.EnableDigest {
		j.logger.Info("daily digest is disabled")
		return nil
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	text, err := j.buildDigest(ctx)
	if err != nil {
		stats.Error = err
		return fmt.Errorf("failed to build digest: %w", err)
	}
	if err := j.sender.SendDigest(ctx, text); err != nil {
		stats.Error = err
		return fmt.Errorf("failed to send digest: %w", err)
	}

	stats.Sent = true
	j.logger.Info("daily digest sent", "duration", time.Since(stats.StartedAt).String())
	return nil
}

// buildDigest assembles the digest sections. A section that fails to render
// is replaced with a short note so the rest of the digest still goes out.
func (j *DailyDigestJob) buildDigest(ctx context.Context) (string, error) {
	date := time.Now().In(j.config.Timezone).Format("02 Jan 2006")
	sections := []string{fmt.Sprintf("Daily summary for %s", date)}
	rendered := 0

	if j.config.IncludeAttendance {
		attendance, err := j.service.FormattedAttendanceSummary(ctx)
		if err != nil {
			j.logger.Warn("digest attendance section failed", "error", err)
			sections = append(sections, "Attendance is unavailable right now.")
		} else {
			sections = append(sections, attendance)
			rendered++
		}
	}

	if j.config.IncludeMarks {
		marks, err := j.service.FormattedMarksSummary(ctx)
		if err != nil {
			j.logger.Warn("digest marks section failed", "error", err)
			sections = append(sections, "Marks are unavailable right now.")
		} else {
			sections = append(sections, marks)
			rendered++
		}
	}

	if rendered == 0 {
		return "", fmt.Errorf("no digest section could be rendered")
	}
	return strings.Join(sections, "\n\n"), nil
}

// LastRunStats returns the outcome of the most recent run, or nil before
// the first one.
func (j *DailyDigestJob) LastRunStats() *DailyDigestStats {
	stats, _ := j.last.Load().(*DailyDigestStats)
	return stats
}

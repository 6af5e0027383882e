package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

// DefaultPollInterval is the cycle interval used until /interval changes it.
const DefaultPollInterval = 30 * time.Minute

// MinPollInterval bounds how aggressively the portal may be polled.
const MinPollInterval = 5 * time.Minute

// DefaultFailureEscalation is the consecutive-failure count after which the
// poller notifies instead of silently retrying. Single blips stay silent to
// avoid alert storms.
const DefaultFailureEscalation = 3

// Notifier receives the poller's outcomes. Implemented by the Telegram
// notifier.
type Notifier interface {
	NotifyChanges(ctx context.Context, report portal.ChangeReport) error
	NotifyFailure(ctx context.Context, consecutive int, err error) error
}

// StateStore persists the last-known monitor state across restarts.
// Optional: with a nil store the previous state lives in memory only and
// the first cycle after a restart is a fresh baseline.
type StateStore interface {
	Load(ctx context.Context) (*portal.MonitorState, error)
	Save(ctx context.Context, state portal.MonitorState) error
}

// CycleRecorder receives the outcome of each successful cycle. Optional;
// used to keep an audit trail of poll results.
type CycleRecorder interface {
	RecordCycle(ctx context.Context, report portal.ChangeReport) error
}

// PollerConfig contains configuration for the poller.
type PollerConfig struct {
	// Interval between cycles. Changeable at runtime via SetInterval.
	Interval time.Duration

	// FailureEscalation is the consecutive-failure count that triggers a
	// failure notification.
	FailureEscalation int
}

// DefaultPollerConfig returns the default poller configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:          DefaultPollInterval,
		FailureEscalation: DefaultFailureEscalation,
	}
}

// Poller owns the periodic check cycle: fetch everything, diff against the
// previous state, alert on changes, store the new state. The scheduler
// decides when RunCycle fires; the interval lives here so the /interval
// command and the schedule read the same value.
type Poller struct {
	service  *Service
	notifier Notifier
	store    StateStore
	history  CycleRecorder
	logger   *slog.Logger

	interval   atomic.Int64 // nanoseconds
	escalation int

	mu       sync.Mutex
	previous *portal.MonitorState
	failures int
	lastRun  time.Time
	lastErr  error
}

// NewPoller creates a new Poller. notifier and store may be nil.
func NewPoller(service *Service, notifier Notifier, store StateStore, config PollerConfig, logger *slog.Logger) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.FailureEscalation <= 0 {
		config.FailureEscalation = DefaultFailureEscalation
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poller{
		service:    service,
		notifier:   notifier,
		store:      store,
		escalation: config.FailureEscalation,
		logger:     logger.With("component", "poller"),
	}
	p.interval.Store(int64(config.Interval))
	return p
}

// SetNotifier attaches the notifier. The notifier usually needs the bot's
// Telegram client, which in turn needs the poller, so it is attached after
// construction. Call before the first cycle.
func (p *Poller) SetNotifier(n Notifier) {
	p.notifier = n
}

// SetHistory attaches a cycle recorder. Call before the first cycle.
func (p *Poller) SetHistory(h CycleRecorder) {
	p.history = h
}

// Interval returns the current cycle interval.
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// SetInterval changes the cycle interval, clamped to the minimum. Takes
// effect on the next schedule evaluation.
func (p *Poller) SetInterval(d time.Duration) time.Duration {
	if d < MinPollInterval {
		d = MinPollInterval
	}
	p.interval.Store(int64(d))
	p.logger.Info("poll interval changed", "interval", d)
	return d
}

// Restore loads the persisted previous state, if a store is configured.
// Called once at startup so a restart does not re-announce known notices.
func (p *Poller) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	state, err := p.store.Load(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.previous = state
	p.mu.Unlock()

	if state != nil {
		p.logger.Info("previous state restored", "updated_at", state.UpdatedAt)
	}
	return nil
}

// RunCycle executes one check cycle. Errors are counted and escalate to a
// notification once the consecutive-failure threshold is reached; the error
// is returned either way so the scheduler can record it.
func (p *Poller) RunCycle(ctx context.Context) error {
	p.mu.Lock()
	previous := p.previous
	p.mu.Unlock()

	report, err := p.service.CheckForChanges(ctx, previous)

	p.mu.Lock()
	p.lastRun = time.Now().UTC()
	p.lastErr = err
	if err != nil {
		p.failures++
	} else {
		p.failures = 0
	}
	failures := p.failures
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("check cycle failed", "consecutive", failures, "error", err)
		if failures == p.escalation && p.notifier != nil {
			if notifyErr := p.notifier.NotifyFailure(ctx, failures, err); notifyErr != nil {
				p.logger.Error("failure notification failed", "error", notifyErr)
			}
		}
		return err
	}

	if report.HasChanges() && p.notifier != nil {
		if notifyErr := p.notifier.NotifyChanges(ctx, report); notifyErr != nil {
			p.logger.Error("change notification failed", "error", notifyErr)
		}
	}

	next := report.NextState()

	p.mu.Lock()
	p.previous = &next
	p.mu.Unlock()

	if p.store != nil {
		if saveErr := p.store.Save(ctx, next); saveErr != nil {
			// In-memory state is already current; persistence catches
			// up on the next successful save.
			p.logger.Error("state save failed", "error", saveErr)
		}
	}

	if p.history != nil {
		if recErr := p.history.RecordCycle(ctx, report); recErr != nil {
			p.logger.Error("cycle history record failed", "error", recErr)
		}
	}

	p.logger.Info("check cycle complete",
		"attendance_changed", report.AttendanceChanged,
		"marks_changed", report.MarksChanged,
		"below_threshold", report.BelowThreshold,
		"new_notices", len(report.NewNotices))
	return nil
}

// Status is a point-in-time view of the poller for the /status command.
type Status struct {
	LastRun      time.Time
	LastErr      error
	Failures     int
	HasBaseline  bool
	PollInterval time.Duration
}

// Status returns the current poller status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		LastRun:      p.lastRun,
		LastErr:      p.lastErr,
		Failures:     p.failures,
		HasBaseline:  p.previous != nil,
		PollInterval: p.Interval(),
	}
}

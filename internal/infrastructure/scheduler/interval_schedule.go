package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires at a fixed distance from the previous run.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a fixed-interval schedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

func (s *IntervalSchedule) Next(t time.Time) time.Time { return t.Add(s.Interval) }

func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// DynamicIntervalSchedule asks fn for the interval before every run, so the
// spacing can be changed while the scheduler is live. The poller's
// /interval command relies on this.
type DynamicIntervalSchedule struct {
	IntervalFn func() time.Duration
}

// NewDynamicIntervalSchedule creates a schedule backed by fn.
func NewDynamicIntervalSchedule(fn func() time.Duration) *DynamicIntervalSchedule {
	return &DynamicIntervalSchedule{IntervalFn: fn}
}

func (s *DynamicIntervalSchedule) Next(t time.Time) time.Time { return t.Add(s.IntervalFn()) }

func (s *DynamicIntervalSchedule) String() string {
	return fmt.Sprintf("@every %s (dynamic)", s.IntervalFn())
}

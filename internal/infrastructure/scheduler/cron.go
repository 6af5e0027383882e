package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronExpression is a standard 5-field cron expression (minute hour
// day-of-month month day-of-week) usable as a Schedule.
//
//	"0 21 * * *"  every day at 21:00
//	"*/30 * * * *" every 30 minutes
//
// Times are evaluated in the location of the time passed to Next, which is
// the scheduler's configured timezone.
type CronExpression struct {
	raw  string
	spec cron.Schedule
}

// ParseCronExpression parses a 5-field cron expression.
func ParseCronExpression(expr string) (*CronExpression, error) {
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &CronExpression{raw: expr, spec: spec}, nil
}

// MustParseCronExpression parses a cron expression or panics. For
// expressions assembled from validated config only.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(err)
	}
	return ce
}

// Next returns the first matching time strictly after t.
func (ce *CronExpression) Next(t time.Time) time.Time {
	return ce.spec.Next(t)
}

// String returns the original expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

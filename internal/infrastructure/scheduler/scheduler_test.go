package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "poll"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	err := s.Register(job, NewIntervalSchedule(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestRunNowExecutesAndRecords(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "poll"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "poll")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	info, err := s.GetJobInfo("poll")
	require.NoError(t, err)
	assert.NotNil(t, info.LastResult)
}

func TestRunNowUnknownJob(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDynamicIntervalScheduleTracksChanges(t *testing.T) {
	var interval atomic.Int64
	interval.Store(int64(30 * time.Minute))

	schedule := NewDynamicIntervalSchedule(func() time.Duration {
		return time.Duration(interval.Load())
	})

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(30*time.Minute), schedule.Next(base))

	interval.Store(int64(5 * time.Minute))
	assert.Equal(t, base.Add(5*time.Minute), schedule.Next(base))
}

func TestCronExpressionNext(t *testing.T) {
	ce, err := ParseCronExpression("0 21 * * *")
	require.NoError(t, err)

	// Before today's firing time: fires today at 21:00.
	at := time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 25, 21, 0, 0, 0, time.UTC), ce.Next(at))

	// After today's firing time: fires tomorrow.
	at = time.Date(2026, 8, 25, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 26, 21, 0, 0, 0, time.UTC), ce.Next(at))
}

func TestParseCronExpressionRejectsGarbage(t *testing.T) {
	cases := []string{"", "* * * *", "61 * * * *", "* 25 * * *", "a b c d e"}
	for _, expr := range cases {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, expr)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "poll"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

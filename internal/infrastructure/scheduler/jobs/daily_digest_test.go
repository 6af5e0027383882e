package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummary struct {
	attendance    string
	attendanceErr error
	marks         string
	marksErr      error
}

func (f *fakeSummary) FormattedAttendanceSummary(context.Context) (string, error) {
	return f.attendance, f.attendanceErr
}

func (f *fakeSummary) FormattedMarksSummary(context.Context) (string, error) {
	return f.marks, f.marksErr
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendDigest(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestDailyDigestSendsBothSections(t *testing.T) {
	summary := &fakeSummary{attendance: "Attendance - Odd 2024", marks: "Marks - Odd 2024"}
	sender := &fakeSender{}
	job := NewDailyDigestJob(summary, sender, DefaultDailyDigestConfig(), nil)

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Attendance - Odd 2024")
	assert.Contains(t, sender.sent[0], "Marks - Odd 2024")

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.True(t, stats.Sent)
}

func TestDailyDigestSurvivesOneFailedSection(t *testing.T) {
	summary := &fakeSummary{
		attendanceErr: errors.New("portal down"),
		marks:         "Marks - Odd 2024",
	}
	sender := &fakeSender{}
	job := NewDailyDigestJob(summary, sender, DefaultDailyDigestConfig(), nil)

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Attendance is unavailable")
	assert.Contains(t, sender.sent[0], "Marks - Odd 2024")
}

func TestDailyDigestFailsWhenNothingRenders(t *testing.T) {
	summary := &fakeSummary{
		attendanceErr: errors.New("portal down"),
		marksErr:      errors.New("portal down"),
	}
	sender := &fakeSender{}
	job := NewDailyDigestJob(summary, sender, DefaultDailyDigestConfig(), nil)

	require.Error(t, job.Run(context.Background()))
	assert.Empty(t, sender.sent)
}

func TestDailyDigestDisabled(t *testing.T) {
	cfg := DefaultDailyDigestConfig()
	cfg.EnableDigest = false
	sender := &fakeSender{}
	job := NewDailyDigestJob(&fakeSummary{}, sender, cfg, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, sender.sent)
}

func TestDailyDigestScheduleUsesSendTime(t *testing.T) {
	cfg := DefaultDailyDigestConfig()
	cfg.SendTime = 8
	job := NewDailyDigestJob(&fakeSummary{}, &fakeSender{}, cfg, nil)

	assert.Equal(t, "0 8 * * *", job.Schedule().String())
}

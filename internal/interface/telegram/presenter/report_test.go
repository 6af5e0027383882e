package presenter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

func TestChangeAlert_NoChanges(t *testing.T) {
	p := NewReportPresenter()

	assert.Empty(t, p.ChangeAlert(portal.ChangeReport{}, 75.0))
}

func TestChangeAlert_AttendanceMoved(t *testing.T) {
	p := NewReportPresenter()

	report := portal.ChangeReport{
		AttendanceChanged: true,
		Current: portal.CycleData{
			Attendance: &portal.AttendanceSnapshot{
				TotalClasses:      120,
				AttendedClasses:   96,
				OverallPercentage: 80.0,
			},
		},
	}

	text := p.ChangeAlert(report, 75.0)
	assert.Contains(t, text, "Portal update")
	assert.Contains(t, text, "80.0%")
	assert.Contains(t, text, "96/120")
	assert.NotContains(t, text, "below")
}

func TestChangeAlert_BelowThresholdWarning(t *testing.T) {
	p := NewReportPresenter()

	report := portal.ChangeReport{
		AttendanceChanged: true,
		BelowThreshold:    true,
		Current: portal.CycleData{
			Attendance: &portal.AttendanceSnapshot{
				TotalClasses:      120,
				AttendedClasses:   84,
				OverallPercentage: 70.0,
			},
		},
	}

	text := p.ChangeAlert(report, 75.0)
	assert.Contains(t, text, "below the 75% floor")
}

func TestChangeAlert_NoticesEscapedAndCapped(t *testing.T) {
	p := NewReportPresenter()

	notices := make([]portal.Notice, 7)
	for i := range notices {
		notices[i] = portal.Notice{
			Title:    "Exam <schedule>",
			PostedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		}
	}

	text := p.ChangeAlert(portal.ChangeReport{NewNotices: notices}, 75.0)
	assert.Contains(t, text, "7 new notice(s)")
	assert.Contains(t, text, "Exam &lt;schedule&gt;")
	assert.Contains(t, text, "and 2 more")
	assert.Contains(t, text, "(20 Aug)")
}

func TestFailureAlert(t *testing.T) {
	p := NewReportPresenter()

	text := p.FailureAlert(3, errors.New("dial tcp: timeout <5s>"))
	assert.Contains(t, text, "3 checks in a row")
	assert.Contains(t, text, "timeout &lt;5s&gt;")
}

func TestPreformatted_EscapesHTML(t *testing.T) {
	p := NewReportPresenter()

	assert.Equal(t, "<pre>a &lt;b&gt; c</pre>", p.Preformatted("a <b> c"))
}

func TestStatus(t *testing.T) {
	p := NewReportPresenter()

	t.Run("never ran", func(t *testing.T) {
		text := p.Status(time.Time{}, nil, 0, false, 30*time.Minute)
		assert.Contains(t, text, "Last check: never")
		assert.Contains(t, text, "Baseline: not yet collected")
		assert.Contains(t, text, "30m0s")
	})

	t.Run("after a failure", func(t *testing.T) {
		lastRun := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
		text := p.Status(lastRun, errors.New("portal down"), 2, true, 30*time.Minute)
		assert.Contains(t, text, "❌ portal down")
		assert.Contains(t, text, "Consecutive failures: 2")
		assert.Contains(t, text, "Baseline: stored")
	})
}

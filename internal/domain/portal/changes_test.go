package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func attendanceAt(pct float64) *AttendanceSnapshot {
	return &AttendanceSnapshot{OverallPercentage: pct}
}

func marksWithCGPA(cgpa float64) *MarksSnapshot {
	return &MarksSnapshot{GradePoints: &GradePointSummary{CGPA: cgpa}}
}

func TestDiffFirstRunIsBaseline(t *testing.T) {
	d := NewChangeDetector(0)

	report := d.Diff(nil, CycleData{
		Attendance: attendanceAt(91.5),
		Marks:      marksWithCGPA(8.2),
	})

	assert.False(t, report.AttendanceChanged)
	assert.False(t, report.MarksChanged)
}

func TestDiffAttendanceExactInequality(t *testing.T) {
	d := NewChangeDetector(0)
	prev := &MonitorState{Attendance: attendanceAt(80.0)}

	same := d.Diff(prev, CycleData{Attendance: attendanceAt(80.0)})
	assert.False(t, same.AttendanceChanged)

	// Even a tiny delta counts; there is no epsilon.
	moved := d.Diff(prev, CycleData{Attendance: attendanceAt(80.0001)})
	assert.True(t, moved.AttendanceChanged)
}

func TestDiffMarksComparesCGPA(t *testing.T) {
	d := NewChangeDetector(0)
	prev := &MonitorState{Marks: marksWithCGPA(7.9)}

	report := d.Diff(prev, CycleData{Marks: marksWithCGPA(8.1)})
	assert.True(t, report.MarksChanged)

	report = d.Diff(prev, CycleData{Marks: marksWithCGPA(7.9)})
	assert.False(t, report.MarksChanged)
}

func TestDiffMarksFirstPublishedCGPAIsChange(t *testing.T) {
	d := NewChangeDetector(0)

	// A snapshot without grade points counts as CGPA 0, so the first
	// CGPA the portal publishes registers as a change.
	prev := &MonitorState{Marks: &MarksSnapshot{}}
	report := d.Diff(prev, CycleData{Marks: marksWithCGPA(8.0)})
	assert.True(t, report.MarksChanged)

	// Both sides unpublished stays quiet.
	report = d.Diff(prev, CycleData{Marks: &MarksSnapshot{}})
	assert.False(t, report.MarksChanged)
}

func TestDiffThreshold(t *testing.T) {
	d := NewChangeDetector(0)
	assert.Equal(t, DefaultAttendanceThreshold, d.Threshold)

	below := d.Diff(nil, CycleData{Attendance: attendanceAt(74.9)})
	assert.True(t, below.BelowThreshold)

	at := d.Diff(nil, CycleData{Attendance: attendanceAt(75.0)})
	assert.False(t, at.BelowThreshold)

	custom := NewChangeDetector(90)
	assert.True(t, custom.Diff(nil, CycleData{Attendance: attendanceAt(85)}).BelowThreshold)
}

func TestDiffNewNotices(t *testing.T) {
	d := NewChangeDetector(0)
	prev := &MonitorState{NoticeIDs: []string{"n1", "n2"}}

	report := d.Diff(prev, CycleData{Notices: []Notice{
		{ID: "n2", Title: "old"},
		{ID: "n3", Title: "fresh"},
	}})

	if assert.Len(t, report.NewNotices, 1) {
		assert.Equal(t, "n3", report.NewNotices[0].ID)
	}
}

func TestReportNextStateCarriesNoticeIDs(t *testing.T) {
	d := NewChangeDetector(0)

	report := d.Diff(nil, CycleData{
		Attendance: attendanceAt(80),
		Marks:      marksWithCGPA(8.0),
		Notices:    []Notice{{ID: "a"}, {ID: "b"}},
	})

	next := report.NextState()
	assert.Equal(t, []string{"a", "b"}, next.NoticeIDs)
	assert.Equal(t, report.Current.Attendance, next.Attendance)
	assert.Equal(t, report.Current.Marks, next.Marks)
	assert.False(t, next.UpdatedAt.IsZero())
}

func TestDiffDegradedCycleKeepsSeenNotices(t *testing.T) {
	d := NewChangeDetector(0)

	// Cycle 1: the notice is announced and recorded as seen.
	first := d.Diff(nil, CycleData{Notices: []Notice{{ID: "n1", Title: "exam"}}})
	assert.Len(t, first.NewNotices, 1)
	state1 := first.NextState()

	// Cycle 2: the board fetch fails. The seen set survives.
	second := d.Diff(&state1, CycleData{NoticesDegraded: true})
	assert.Empty(t, second.NewNotices)
	state2 := second.NextState()
	assert.Equal(t, []string{"n1"}, state2.NoticeIDs)

	// Cycle 3: the board is back with the same notice; nothing new.
	third := d.Diff(&state2, CycleData{Notices: []Notice{{ID: "n1", Title: "exam"}}})
	assert.Empty(t, third.NewNotices)
}

func TestDiffEmptyBoardResetsSeenNotices(t *testing.T) {
	d := NewChangeDetector(0)
	prev := &MonitorState{NoticeIDs: []string{"n1"}}

	// A genuinely empty board (no degradation) drops the seen set.
	report := d.Diff(prev, CycleData{})
	assert.Empty(t, report.NextState().NoticeIDs)
}

func TestReportHasChanges(t *testing.T) {
	empty := ChangeReport{}
	assert.False(t, empty.HasChanges())

	withNotice := ChangeReport{NewNotices: []Notice{{ID: "x"}}}
	assert.True(t, withNotice.HasChanges())
}

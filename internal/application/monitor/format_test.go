package monitor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

func TestFormatAttendanceSummary(t *testing.T) {
	snapshot := &portal.AttendanceSnapshot{
		OverallPercentage: 81.3,
		TotalClasses:      80,
		AttendedClasses:   65,
		SemesterLabel:     "Odd 2024",
		Subjects: map[string]portal.SubjectAttendance{
			"Data Structures and Algorithms": {TotalClasses: 40, AttendedClasses: 36, Percentage: 90},
			"Compiler Design":                {TotalClasses: 40, AttendedClasses: 29, Percentage: 72.5},
		},
	}

	out := FormatAttendanceSummary(snapshot, 75)

	assert.Contains(t, out, "Odd 2024")
	assert.Contains(t, out, "81.3%")
	assert.Contains(t, out, "(65/80)")

	// Below-threshold subjects carry a marker, healthy ones do not.
	lines := strings.Split(out, "\n")
	for _, line := range lines {
		if strings.Contains(line, "Compiler Design") {
			assert.True(t, strings.HasSuffix(line, "!"))
		}
		if strings.Contains(line, "Data Structures") {
			assert.False(t, strings.HasSuffix(line, "!"))
		}
	}
}

func TestFormatAttendanceSummaryEmpty(t *testing.T) {
	assert.Equal(t, "No attendance data available.", FormatAttendanceSummary(nil, 75))
	assert.Equal(t, "No attendance data available.", FormatAttendanceSummary(&portal.AttendanceSnapshot{}, 75))
}

func TestFormatMarksSummary(t *testing.T) {
	snapshot := &portal.MarksSnapshot{
		SemesterLabel: "Odd 2024",
		GradePoints:   &portal.GradePointSummary{SGPA: 8.4, CGPA: 7.9},
		Subjects: map[string]portal.SubjectMarks{
			"Data Structures and Algorithms": {T1: 15, Grade: "B"},
			"Engineering Physics":            {Absent: true},
			"Discrete Mathematics":           {T1: 17.5},
		},
	}

	out := FormatMarksSummary(snapshot)

	assert.Contains(t, out, "Odd 2024")
	assert.Contains(t, out, "SGPA 8.40 | CGPA 7.90")
	assert.Contains(t, out, "(B)")
	assert.Contains(t, out, "17.5")

	lines := strings.Split(out, "\n")
	for _, line := range lines {
		if strings.Contains(line, "Engineering Physics") {
			assert.True(t, strings.HasSuffix(strings.TrimSpace(line), portal.AbsentMarker))
		}
	}
}

func TestShortenKeepsMultibyteNamesValid(t *testing.T) {
	long := "Théorie des Langages et Compilation Avancée"
	got := shorten(long)

	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, maxSubjectWidth, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))

	short := "Álgebra Linear"
	assert.Equal(t, short, shorten(short))
}

func TestFormatMarksSummaryEmptySemester(t *testing.T) {
	out := FormatMarksSummary(&portal.MarksSnapshot{SemesterLabel: "Even 2023"})
	assert.Contains(t, out, "Nothing published yet.")
}

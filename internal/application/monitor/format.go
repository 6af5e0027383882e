package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

// maxSubjectWidth truncates long subject names so the table stays readable
// in a chat message.
const maxSubjectWidth = 28

// FormatAttendanceSummary renders an attendance snapshot as a plain-text
// table of subject to percentage. Subjects below the threshold are marked.
// Pure function of the snapshot; no fetching.
func FormatAttendanceSummary(s *portal.AttendanceSnapshot, threshold float64) string {
	if s == nil || len(s.Subjects) == 0 {
		return "No attendance data available."
	}

	names := make([]string, 0, len(s.Subjects))
	for name := range s.Subjects {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Attendance - %s\n", s.SemesterLabel)
	fmt.Fprintf(&b, "Overall: %.1f%% (%d/%d)\n\n", s.OverallPercentage, s.AttendedClasses, s.TotalClasses)

	for _, name := range names {
		subject := s.Subjects[name]
		marker := ""
		if subject.Percentage < threshold {
			marker = " !"
		}
		fmt.Fprintf(&b, "%-*s %6.1f%% (%d/%d)%s\n",
			maxSubjectWidth, shorten(name), subject.Percentage,
			subject.AttendedClasses, subject.TotalClasses, marker)
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatMarksSummary renders a marks snapshot as plain text.
func FormatMarksSummary(m *portal.MarksSnapshot) string {
	if m == nil {
		return "No marks data available."
	}

	var b strings.Builder
	if m.SemesterLabel != "" {
		fmt.Fprintf(&b, "Marks - %s\n", m.SemesterLabel)
	} else {
		b.WriteString("Marks\n")
	}
	if m.GradePoints != nil {
		fmt.Fprintf(&b, "SGPA %.2f | CGPA %.2f\n", m.GradePoints.SGPA, m.GradePoints.CGPA)
	}

	if len(m.Subjects) == 0 {
		b.WriteString("\nNothing published yet.")
		return b.String()
	}

	names := make([]string, 0, len(m.Subjects))
	for name := range m.Subjects {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("\n")
	for _, name := range names {
		marks := m.Subjects[name]
		switch {
		case marks.Absent:
			fmt.Fprintf(&b, "%-*s %s\n", maxSubjectWidth, shorten(name), portal.AbsentMarker)
		case marks.Grade != "":
			fmt.Fprintf(&b, "%-*s %5.1f (%s)\n", maxSubjectWidth, shorten(name), marks.T1, marks.Grade)
		default:
			fmt.Fprintf(&b, "%-*s %5.1f\n", maxSubjectWidth, shorten(name), marks.T1)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// shorten truncates a subject name to the table width. Counts runes, not
// bytes: subject names can carry accented or non-Latin characters and a
// byte slice could cut one in half.
func shorten(name string) string {
	runes := []rune(name)
	if len(runes) <= maxSubjectWidth {
		return name
	}
	return string(runes[:maxSubjectWidth-1]) + "…"
}

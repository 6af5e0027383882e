// Package portal contains the domain model of the web-portal monitor:
// attendance and marks snapshots, semester identity, and the change
// detection rules applied between polling cycles.
package portal

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

// ComponentPercentages holds the per-component percentages the portal reports
// for a subject. Any of them may be zero when the portal did not populate the
// field, which is why SubjectAttendance.Percentage is selected by precedence
// rather than computed blindly.
type ComponentPercentages struct {
	Lecture    float64 `json:"lecture"`
	Tutorial   float64 `json:"tutorial"`
	Practical  float64 `json:"practical"`
	OverallLTP float64 `json:"overall_ltp"`
}

// SubjectAttendance is the reconciled attendance figure for one subject.
type SubjectAttendance struct {
	// SubjectCode is the portal's code for the subject (may be empty).
	SubjectCode string `json:"subject_code"`

	// TotalClasses is the summed lecture+tutorial+practical class count.
	TotalClasses int `json:"total_classes"`

	// AttendedClasses is the summed present count, never above TotalClasses.
	AttendedClasses int `json:"attended_classes"`

	// Percentage is the figure chosen by the precedence rule:
	// overall LTP, then practical, then lecture, then tutorial, then the
	// attended/total ratio. It is not necessarily attended/total*100.
	Percentage float64 `json:"percentage"`

	// Components are the raw per-component percentages as reported.
	Components ComponentPercentages `json:"components"`
}

// AttendanceSnapshot is one reconciled view of the student's attendance.
// Snapshots are recomputed on every fetch and never mutated in place.
type AttendanceSnapshot struct {
	TotalClasses    int                          `json:"total_classes"`
	AttendedClasses int                          `json:"attended_classes"`

	// OverallPercentage is sum(attended)/sum(total)*100 across kept
	// subjects, 0 when no classes were ever scheduled.
	OverallPercentage float64 `json:"overall_percentage"`

	Subjects map[string]SubjectAttendance `json:"subjects"`

	SemesterLabel string    `json:"semester_label"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SEMESTERS & MARKS
// ══════════════════════════════════════════════════════════════════════════════

// SemesterType classifies a semester by the portal's registration code.
type SemesterType string

const (
	SemesterOdd     SemesterType = "odd"
	SemesterEven    SemesterType = "even"
	SemesterSummer  SemesterType = "summer"
	SemesterUnknown SemesterType = "unknown"
)

// Semester is one entry of the portal's semester list. DisplayName is the
// stable key users select by; it is derived deterministically from RawName
// and RegistrationCode so the same label can be re-derived when resolving a
// selection back to its source ref.
type Semester struct {
	RawName          string       `json:"raw_name"`
	DisplayName      string       `json:"display_name"`
	Type             SemesterType `json:"type"`
	RegistrationCode string       `json:"registration_code"`
	Year             string       `json:"year,omitempty"`
	Ordinal          int          `json:"ordinal"`
}

// AbsentMarker is the T1 value recorded when the grade report marks the
// student absent instead of carrying a score.
const AbsentMarker = "A"

// SubjectMarks is the marks record for one subject. T1 is either a float
// score or the literal absent marker, so it is kept as two fields.
type SubjectMarks struct {
	// T1 is the first internal-assessment score. Ignored when Absent.
	T1 float64 `json:"t1"`

	// Absent is set when the report shows "A" in place of a score.
	Absent bool `json:"absent"`

	// Grade is the letter grade when the report carries one.
	Grade string `json:"grade"`

	// SubjectCode is attached when a parenthesized code follows the
	// subject on the report.
	SubjectCode string `json:"subject_code,omitempty"`
}

// GradePointSummary carries the portal's SGPA/CGPA figures.
type GradePointSummary struct {
	SGPA float64 `json:"sgpa"`
	CGPA float64 `json:"cgpa"`
}

// MarksSnapshot is the marks view for one semester. The "latest" snapshot
// also carries SGPA/CGPA; per-semester snapshots carry subjects only.
type MarksSnapshot struct {
	SemesterLabel string                  `json:"semester_label"`
	Subjects      map[string]SubjectMarks `json:"subjects"`
	GradePoints   *GradePointSummary      `json:"grade_points,omitempty"`
	FetchedAt     time.Time               `json:"fetched_at"`
}

// CGPA returns the snapshot's CGPA and whether one is present.
func (m *MarksSnapshot) CGPA() (float64, bool) {
	if m == nil || m.GradePoints == nil {
		return 0, false
	}
	return m.GradePoints.CGPA, true
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTICES & CHANGE REPORTS
// ══════════════════════════════════════════════════════════════════════════════

// Notice is a portal announcement. ID is the identity used for new-notice
// detection between cycles.
type Notice struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body,omitempty"`
	PostedAt time.Time `json:"posted_at"`
}

// MonitorState is the "last known" generation the change detector compares
// against. Exactly one generation is kept; the driver stores the current
// cycle's data as the next cycle's previous state.
type MonitorState struct {
	Attendance *AttendanceSnapshot `json:"attendance,omitempty"`
	Marks      *MarksSnapshot      `json:"marks,omitempty"`
	NoticeIDs  []string            `json:"notice_ids,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// ChangeReport is the outcome of comparing a fresh cycle against the
// previous state.
type ChangeReport struct {
	AttendanceChanged bool     `json:"attendance_changed"`
	MarksChanged      bool     `json:"marks_changed"`
	BelowThreshold    bool     `json:"below_threshold"`
	NewNotices        []Notice `json:"new_notices,omitempty"`

	// CarriedNoticeIDs preserves the previous seen-notice set when the
	// current cycle's notice fetch degraded.
	CarriedNoticeIDs []string `json:"carried_notice_ids,omitempty"`

	// Current is the data the report was computed from; the driver
	// persists it as the next previous state.
	Current CycleData `json:"current"`
}

// CycleData groups the three fetch results of one polling cycle.
type CycleData struct {
	Attendance *AttendanceSnapshot `json:"attendance,omitempty"`
	Marks      *MarksSnapshot      `json:"marks,omitempty"`
	Notices    []Notice            `json:"notices,omitempty"`

	// NoticesDegraded marks a cycle whose notice fetch failed rather than
	// returning an empty board. The seen-notice set must survive such a
	// cycle, or every old notice would be re-announced once the board is
	// reachable again.
	NoticesDegraded bool `json:"notices_degraded,omitempty"`
}

// HasChanges reports whether anything in the report warrants an alert.
func (r *ChangeReport) HasChanges() bool {
	return r.AttendanceChanged || r.MarksChanged || r.BelowThreshold || len(r.NewNotices) > 0
}

// NextState builds the MonitorState to store for the following cycle.
func (r *ChangeReport) NextState() MonitorState {
	ids := make([]string, 0, len(r.Current.Notices)+len(r.CarriedNoticeIDs))
	ids = append(ids, r.CarriedNoticeIDs...)
	for _, n := range r.Current.Notices {
		ids = append(ids, n.ID)
	}
	return MonitorState{
		Attendance: r.Current.Attendance,
		Marks:      r.Current.Marks,
		NoticeIDs:  ids,
		UpdatedAt:  time.Now().UTC(),
	}
}

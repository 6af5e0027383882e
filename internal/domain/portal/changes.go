package portal

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE DETECTION
// Diff is a pure function of the previous state and the current cycle data.
// It owns no storage; the driver persists the report's NextState as the
// previous state for the following cycle.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultAttendanceThreshold is the overall-percentage floor below which a
// threshold alert is raised.
const DefaultAttendanceThreshold = 75.0

// ChangeDetector compares polling cycles.
type ChangeDetector struct {
	// Threshold is the attendance percentage floor.
	Threshold float64
}

// NewChangeDetector creates a detector with the given threshold, falling
// back to the default when threshold is not positive.
func NewChangeDetector(threshold float64) *ChangeDetector {
	if threshold <= 0 {
		threshold = DefaultAttendanceThreshold
	}
	return &ChangeDetector{Threshold: threshold}
}

// Diff compares the current cycle against the previous state.
//
// A missing previous snapshot is a first-run baseline, never a change.
// Attendance comparison is exact float inequality: the portal reports the
// same figures bit-for-bit between polls, so any difference is a real
// upstream update, and an epsilon would mask small corrections.
func (d *ChangeDetector) Diff(prev *MonitorState, current CycleData) ChangeReport {
	report := ChangeReport{Current: current}

	if prev != nil && prev.Attendance != nil && current.Attendance != nil {
		report.AttendanceChanged = prev.Attendance.OverallPercentage != current.Attendance.OverallPercentage
	}

	if prev != nil && prev.Marks != nil && current.Marks != nil {
		// A side with no published CGPA counts as 0, so the first CGPA
		// the portal ever publishes registers as a change.
		prevCGPA, _ := prev.Marks.CGPA()
		curCGPA, _ := current.Marks.CGPA()
		report.MarksChanged = prevCGPA != curCGPA
	}

	if current.Attendance != nil {
		report.BelowThreshold = current.Attendance.OverallPercentage < d.Threshold
	}

	report.NewNotices = d.newNotices(prev, current.Notices)

	// A degraded notice fetch yields an empty list that means "unknown",
	// not "board is empty". Carry the previous seen set forward so the
	// notices do not all look new once the board is reachable again.
	if current.NoticesDegraded && prev != nil {
		report.CarriedNoticeIDs = prev.NoticeIDs
	}

	return report
}

// newNotices returns current notices whose ID was not seen in the previous
// cycle. With no previous state every current notice is new.
func (d *ChangeDetector) newNotices(prev *MonitorState, current []Notice) []Notice {
	if len(current) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	if prev != nil {
		for _, id := range prev.NoticeIDs {
			seen[id] = struct{}{}
		}
	}

	var fresh []Notice
	for _, n := range current {
		if _, ok := seen[n.ID]; !ok {
			fresh = append(fresh, n)
		}
	}
	return fresh
}

package webportal

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

// noticeNamespace seeds deterministic notice IDs so the same notice maps to
// the same ID on every poll, which is what new-notice detection relies on.
var noticeNamespace = uuid.MustParse("6f1c24a8-9b3e-4f6d-8f0a-2c5d1e7b9a43")

// ══════════════════════════════════════════════════════════════════════════════
// FIELD-VARIANT TABLES
// ══════════════════════════════════════════════════════════════════════════════

// The portal spells the same field differently across endpoints and releases
// (including a stable "percantage" typo). Each canonical field carries an
// ordered list of observed spellings; the first key present in a record wins.
// Missing numeric fields resolve to 0 and missing string fields to "", never
// to an error.
var (
	subjectNameKeys = []string{"subjectdesc", "subjectname", "subject"}
	subjectCodeKeys = []string{"subjectcode", "individualsubjectcode", "subjectid"}
	componentIDKeys = []string{"subjectcomponentid", "componentid", "subjectid"}

	lectureTotalKeys   = []string{"Ltotalclass", "Ltotalclas", "Ltotal"}
	lecturePresentKeys = []string{"Ltotalpres", "Lattended", "Lpres"}

	tutorialTotalKeys   = []string{"Ttotalclass", "Ttotalclas", "Ttotal"}
	tutorialPresentKeys = []string{"Ttotalpres", "Tattended", "Tpres"}

	practicalTotalKeys   = []string{"Ptotalclass", "Ptotalclas", "Ptotal"}
	practicalPresentKeys = []string{"Ptotalpres", "Pattended", "Ppres"}

	lecturePctKeys   = []string{"Lpercentage", "Lpercantage"}
	tutorialPctKeys  = []string{"Tpercentage", "Tpercantage"}
	practicalPctKeys = []string{"Ppercentage", "Ppercantage"}
	ltpPctKeys       = []string{"LTpercantage", "LTPpercantage", "LTpercentage"}

	gradeKeys = []string{"grade", "gradecode"}
	t1Keys    = []string{"t1", "T1", "obtainedmarks"}
)

// AttendanceRecord is the canonical form of one raw attendance record after
// variant mapping.
type AttendanceRecord struct {
	SubjectName string
	SubjectCode string
	ComponentID string

	LectureTotal     int
	LecturePresent   int
	TutorialTotal    int
	TutorialPresent  int
	PracticalTotal   int
	PracticalPresent int

	LecturePct   float64
	TutorialPct  float64
	PracticalPct float64
	LTPPct       float64
}

// Total is the summed class count across all components.
func (r AttendanceRecord) Total() int {
	return r.LectureTotal + r.TutorialTotal + r.PracticalTotal
}

// Present is the summed present count across all components.
func (r AttendanceRecord) Present() int {
	return r.LecturePresent + r.TutorialPresent + r.PracticalPresent
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts raw portal records into canonical domain types.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapAttendanceRecord canonicalizes one raw attendance record.
func (m *Mapper) MapAttendanceRecord(rec RawRecord) AttendanceRecord {
	return AttendanceRecord{
		SubjectName: stringField(rec, subjectNameKeys...),
		SubjectCode: stringField(rec, subjectCodeKeys...),
		ComponentID: stringField(rec, componentIDKeys...),

		LectureTotal:     intField(rec, lectureTotalKeys...),
		LecturePresent:   intField(rec, lecturePresentKeys...),
		TutorialTotal:    intField(rec, tutorialTotalKeys...),
		TutorialPresent:  intField(rec, tutorialPresentKeys...),
		PracticalTotal:   intField(rec, practicalTotalKeys...),
		PracticalPresent: intField(rec, practicalPresentKeys...),

		LecturePct:   numberField(rec, lecturePctKeys...),
		TutorialPct:  numberField(rec, tutorialPctKeys...),
		PracticalPct: numberField(rec, practicalPctKeys...),
		LTPPct:       numberField(rec, ltpPctKeys...),
	}
}

// MapAttendance canonicalizes a full attendance record list.
func (m *Mapper) MapAttendance(records []RawRecord) []AttendanceRecord {
	mapped := make([]AttendanceRecord, 0, len(records))
	for _, rec := range records {
		mapped = append(mapped, m.MapAttendanceRecord(rec))
	}
	return mapped
}

// MapSemester derives the domain semester for one portal ref. The display
// name derivation is the same one used when resolving a user-selected label
// back to its ref, so the two always agree.
func (m *Mapper) MapSemester(ref SemesterRefDTO, ordinal int) portal.Semester {
	rawName := ref.Name
	if rawName == "" {
		rawName = ref.RegistrationCode
	}
	return portal.NormalizeSemester(rawName, ref.RegistrationCode, ordinal)
}

// MapSemesters derives domain semesters for a full ref list, preserving
// order.
func (m *Mapper) MapSemesters(refs []SemesterRefDTO) []portal.Semester {
	semesters := make([]portal.Semester, 0, len(refs))
	for i, ref := range refs {
		semesters = append(semesters, m.MapSemester(ref, i))
	}
	return semesters
}

// MapGradeCardEntry canonicalizes one grade-card record into a subject name
// and its marks. Records without a subject name are dropped (ok=false).
// A literal "A" in the marks field means the student was absent.
func (m *Mapper) MapGradeCardEntry(rec RawRecord) (string, portal.SubjectMarks, bool) {
	name := stringField(rec, subjectNameKeys...)
	if name == "" {
		return "", portal.SubjectMarks{}, false
	}

	marks := portal.SubjectMarks{
		Grade:       stringField(rec, gradeKeys...),
		SubjectCode: stringField(rec, subjectCodeKeys...),
	}

	raw := strings.TrimSpace(stringField(rec, t1Keys...))
	if raw == portal.AbsentMarker {
		marks.Absent = true
	} else {
		marks.T1 = numberField(rec, t1Keys...)
	}
	return name, marks, true
}

// LatestGradePoints extracts the current SGPA/CGPA from the grade-point
// table, nil when the table is empty.
func (m *Mapper) LatestGradePoints(dto *SgpaCgpaDTO) *portal.GradePointSummary {
	if dto == nil || len(dto.Rows) == 0 {
		return nil
	}
	row := dto.Rows[0]
	return &portal.GradePointSummary{SGPA: row.SGPA, CGPA: row.CGPA}
}

// MapNotice converts one notice. A missing portal ID is replaced with a
// deterministic UUID derived from the notice content.
func (m *Mapper) MapNotice(dto NoticeDTO) portal.Notice {
	id := dto.ID
	if id == "" {
		id = uuid.NewSHA1(noticeNamespace, []byte(dto.Title+"|"+dto.PostedAt)).String()
	}

	var postedAt time.Time
	if dto.PostedAt != "" {
		if ts, err := time.Parse(time.RFC3339, dto.PostedAt); err == nil {
			postedAt = ts
		}
	}

	return portal.Notice{ID: id, Title: dto.Title, Body: dto.Body, PostedAt: postedAt}
}

// MapNotices converts a notice list, preserving order.
func (m *Mapper) MapNotices(dtos []NoticeDTO) []portal.Notice {
	notices := make([]portal.Notice, 0, len(dtos))
	for _, dto := range dtos {
		notices = append(notices, m.MapNotice(dto))
	}
	return notices
}

// CountPresent counts the literal "Present" entries of a detailed attendance
// response.
func (m *Mapper) CountPresent(dto *DetailedAttendanceDTO) (present, total int) {
	if dto == nil {
		return 0, 0
	}
	for _, e := range dto.Entries {
		total++
		if strings.EqualFold(strings.TrimSpace(e.AttendanceStatus), "Present") {
			present++
		}
	}
	return present, total
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELD ACCESS
// ══════════════════════════════════════════════════════════════════════════════

// numberField returns the first present key's numeric value, 0 when no key
// is present or the value is not numeric. The portal mixes JSON numbers and
// numeric strings for the same field.
func numberField(rec RawRecord, keys ...string) float64 {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// intField is numberField truncated to an int, for class counts.
func intField(rec RawRecord, keys ...string) int {
	return int(numberField(rec, keys...))
}

// stringField returns the first present key's string value, "" when no key
// is present. Numeric values are rendered, since the portal sometimes sends
// codes as numbers.
func stringField(rec RawRecord, keys ...string) string {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

package webportal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

func TestMapAttendanceRecordVariants(t *testing.T) {
	m := NewMapper()

	// JSON numbers arrive as float64, but the portal also sends numeric
	// strings for the same fields.
	rec := RawRecord{
		"subjectdesc":  "Data Structures and Algorithms",
		"subjectcode":  "CS201",
		"Ltotalclass":  float64(30),
		"Ltotalpres":   "27",
		"Ttotalclass":  float64(10),
		"Ttotalpres":   float64(9),
		"Ptotalclass":  "0",
		"Lpercentage":  float64(90),
		"LTpercantage": "89.5",
	}

	mapped := m.MapAttendanceRecord(rec)

	assert.Equal(t, "Data Structures and Algorithms", mapped.SubjectName)
	assert.Equal(t, "CS201", mapped.SubjectCode)
	assert.Equal(t, 30, mapped.LectureTotal)
	assert.Equal(t, 27, mapped.LecturePresent)
	assert.Equal(t, 10, mapped.TutorialTotal)
	assert.Equal(t, 9, mapped.TutorialPresent)
	assert.Equal(t, 0, mapped.PracticalTotal)
	assert.Equal(t, 90.0, mapped.LecturePct)
	assert.Equal(t, 89.5, mapped.LTPPct)

	assert.Equal(t, 40, mapped.Total())
	assert.Equal(t, 36, mapped.Present())
}

func TestMapAttendanceRecordAlternateSpellings(t *testing.T) {
	m := NewMapper()

	rec := RawRecord{
		"subjectname":           "Operating Systems",
		"individualsubjectcode": "CS305",
		"subjectcomponentid":    "CMP-9",
		"Ltotalclas":            float64(12),
		"Lattended":             float64(10),
		"Ppercantage":           float64(83.3),
	}

	mapped := m.MapAttendanceRecord(rec)

	assert.Equal(t, "Operating Systems", mapped.SubjectName)
	assert.Equal(t, "CS305", mapped.SubjectCode)
	assert.Equal(t, "CMP-9", mapped.ComponentID)
	assert.Equal(t, 12, mapped.LectureTotal)
	assert.Equal(t, 10, mapped.LecturePresent)
	assert.Equal(t, 83.3, mapped.PracticalPct)
}

func TestMapAttendanceRecordDefaults(t *testing.T) {
	m := NewMapper()

	mapped := m.MapAttendanceRecord(RawRecord{"unrelated": "x", "Ltotalclass": nil})

	assert.Equal(t, "", mapped.SubjectName)
	assert.Equal(t, "", mapped.SubjectCode)
	assert.Equal(t, 0, mapped.Total())
	assert.Equal(t, 0, mapped.Present())
	assert.Equal(t, 0.0, mapped.LTPPct)
}

func TestMapGradeCardEntry(t *testing.T) {
	m := NewMapper()

	name, marks, ok := m.MapGradeCardEntry(RawRecord{
		"subjectdesc": "Discrete Mathematics",
		"subjectcode": "MA102",
		"grade":       "B",
		"t1":          float64(15),
	})
	require.True(t, ok)
	assert.Equal(t, "Discrete Mathematics", name)
	assert.Equal(t, "B", marks.Grade)
	assert.Equal(t, "MA102", marks.SubjectCode)
	assert.Equal(t, 15.0, marks.T1)
	assert.False(t, marks.Absent)
}

func TestMapGradeCardEntryAbsent(t *testing.T) {
	m := NewMapper()

	_, marks, ok := m.MapGradeCardEntry(RawRecord{
		"subjectdesc": "Engineering Physics",
		"t1":          "A",
	})
	require.True(t, ok)
	assert.True(t, marks.Absent)
	assert.Equal(t, 0.0, marks.T1)
}

func TestMapGradeCardEntryWithoutNameIsDropped(t *testing.T) {
	m := NewMapper()

	_, _, ok := m.MapGradeCardEntry(RawRecord{"grade": "C"})
	assert.False(t, ok)
}

func TestMapSemestersDerivesStableDisplayNames(t *testing.T) {
	m := NewMapper()

	semesters := m.MapSemesters([]SemesterRefDTO{
		{RegistrationID: "r1", RegistrationCode: "ODD2024"},
		{RegistrationID: "r2", RegistrationCode: "EVESEM24"},
	})

	require.Len(t, semesters, 2)
	assert.Equal(t, "Odd 2024", semesters[0].DisplayName)
	assert.Equal(t, 0, semesters[0].Ordinal)
	assert.Equal(t, "Even 2024", semesters[1].DisplayName)
	assert.Equal(t, 1, semesters[1].Ordinal)

	// Re-deriving from the same ref must agree with the list derivation.
	again := m.MapSemester(SemesterRefDTO{RegistrationID: "r1", RegistrationCode: "ODD2024"}, 0)
	assert.Equal(t, semesters[0].DisplayName, again.DisplayName)
}

func TestMapSemesterFallsBackToRegistrationCodeAsName(t *testing.T) {
	m := NewMapper()

	sem := m.MapSemester(SemesterRefDTO{RegistrationCode: "SUMMER23"}, 0)
	assert.Equal(t, "SUMMER23", sem.RawName)
	assert.Equal(t, portal.SemesterSummer, sem.Type)
}

func TestLatestGradePoints(t *testing.T) {
	m := NewMapper()

	assert.Nil(t, m.LatestGradePoints(nil))
	assert.Nil(t, m.LatestGradePoints(&SgpaCgpaDTO{}))

	gp := m.LatestGradePoints(&SgpaCgpaDTO{Rows: []GradePointRowDTO{
		{StyNumber: "5", SGPA: 8.4, CGPA: 7.9},
		{StyNumber: "4", SGPA: 7.1, CGPA: 7.6},
	}})
	require.NotNil(t, gp)
	assert.Equal(t, 8.4, gp.SGPA)
	assert.Equal(t, 7.9, gp.CGPA)
}

func TestMapNoticeDerivesStableID(t *testing.T) {
	m := NewMapper()

	dto := NoticeDTO{Title: "Exam schedule released", PostedAt: "2025-05-12T10:00:00Z"}

	first := m.MapNotice(dto)
	second := m.MapNotice(dto)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID, "same notice must map to the same ID on every poll")
	assert.Equal(t, 2025, first.PostedAt.Year())

	other := m.MapNotice(NoticeDTO{Title: "Holiday announcement"})
	assert.NotEqual(t, first.ID, other.ID)
}

func TestMapNoticeKeepsPortalID(t *testing.T) {
	m := NewMapper()

	n := m.MapNotice(NoticeDTO{ID: "n-42", Title: "whatever"})
	assert.Equal(t, "n-42", n.ID)
}

func TestCountPresent(t *testing.T) {
	m := NewMapper()

	present, total := m.CountPresent(&DetailedAttendanceDTO{Entries: []LectureEntryDTO{
		{AttendanceStatus: "Present"},
		{AttendanceStatus: "Absent"},
		{AttendanceStatus: " present "},
		{AttendanceStatus: ""},
	}})
	assert.Equal(t, 2, present)
	assert.Equal(t, 4, total)

	present, total = m.CountPresent(nil)
	assert.Equal(t, 0, present)
	assert.Equal(t, 0, total)
}

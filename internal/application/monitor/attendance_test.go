package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
)

func noDetailConfig() AttendanceConfig {
	cfg := DefaultAttendanceConfig()
	cfg.DetailEnhancement = false
	return cfg
}

func TestFetchSkipsSubjectsWithoutClasses(t *testing.T) {
	client := &fakePortal{attendance: []webportal.RawRecord{
		{
			"subjectdesc": "Data Structures and Algorithms",
			"Ltotalclass": float64(40),
			"Ltotalpres":  float64(30),
		},
		{
			"subjectdesc": "Not Yet Started Elective",
			"Ltotalclass": float64(0),
		},
	}}

	snapshot, err := NewAttendanceAggregator(client, noDetailConfig(), nil).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Subjects, 1)
	assert.Equal(t, 75.0, snapshot.OverallPercentage)
	assert.Equal(t, 40, snapshot.TotalClasses)
	assert.Equal(t, 30, snapshot.AttendedClasses)
	assert.Equal(t, "Odd 2024", snapshot.SemesterLabel)
}

func TestFetchPercentagePrecedence(t *testing.T) {
	client := &fakePortal{attendance: []webportal.RawRecord{
		{
			// Only the combined LTP field is populated; it wins over
			// everything, including the computed ratio.
			"subjectdesc":  "Operating Systems Lab",
			"Ptotalclass":  float64(20),
			"Ptotalpres":   float64(10),
			"LTpercantage": float64(92.5),
		},
		{
			"subjectdesc": "Compiler Design",
			"Ltotalclass": float64(30),
			"Ltotalpres":  float64(15),
			"Lpercentage": float64(50),
			"Tpercentage": float64(99), // lecture outranks tutorial
		},
	}}

	snapshot, err := NewAttendanceAggregator(client, noDetailConfig(), nil).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 92.5, snapshot.Subjects["Operating Systems Lab"].Percentage)
	assert.Equal(t, 50.0, snapshot.Subjects["Compiler Design"].Percentage)
}

func TestFetchComputesRatioWhenNoPercentageFields(t *testing.T) {
	client := &fakePortal{attendance: []webportal.RawRecord{
		{
			"subjectdesc": "Discrete Mathematics",
			"Ltotalclass": float64(10),
			"Ltotalpres":  float64(9),
			"Ttotalclass": float64(10),
			"Ttotalpres":  float64(6),
		},
	}}

	snapshot, err := NewAttendanceAggregator(client, noDetailConfig(), nil).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 75.0, snapshot.Subjects["Discrete Mathematics"].Percentage)
}

func TestFetchDetailEnhancementSupersedesAggregates(t *testing.T) {
	client := &fakePortal{
		attendance: []webportal.RawRecord{{
			"subjectdesc":        "Computer Networks",
			"subjectcomponentid": "CMP-1",
			"Ltotalclass":        float64(40),
			"Ltotalpres":         float64(30),
		}},
		detail: &webportal.DetailedAttendanceDTO{Entries: []webportal.LectureEntryDTO{
			{AttendanceStatus: "Present"},
			{AttendanceStatus: "Present"},
			{AttendanceStatus: "Absent"},
			{AttendanceStatus: "Present"},
		}},
	}

	snapshot, err := NewAttendanceAggregator(client, DefaultAttendanceConfig(), nil).Fetch(context.Background())
	require.NoError(t, err)

	subject := snapshot.Subjects["Computer Networks"]
	assert.Equal(t, 4, subject.TotalClasses)
	assert.Equal(t, 3, subject.AttendedClasses)
	assert.Equal(t, 75.0, subject.Percentage)
	assert.Equal(t, 1, client.detailCalls)
}

func TestFetchDetailFailureIsSwallowed(t *testing.T) {
	client := &fakePortal{
		attendance: []webportal.RawRecord{{
			"subjectdesc":        "Computer Networks",
			"subjectcomponentid": "CMP-1",
			"Ltotalclass":        float64(40),
			"Ltotalpres":         float64(30),
		}},
		detailErr: errors.New("detail endpoint down"),
	}

	snapshot, err := NewAttendanceAggregator(client, DefaultAttendanceConfig(), nil).Fetch(context.Background())
	require.NoError(t, err)

	subject := snapshot.Subjects["Computer Networks"]
	assert.Equal(t, 40, subject.TotalClasses)
	assert.Equal(t, 30, subject.AttendedClasses)
}

func TestFetchSessionErrorPropagates(t *testing.T) {
	client := &fakePortal{sessionErr: portal.NewError("webportal", "Login", portal.ErrSession, "no session")}

	_, err := NewAttendanceAggregator(client, noDetailConfig(), nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, portal.IsSession(err))
}

func TestFetchNoRegistrationsIsSourceError(t *testing.T) {
	client := &fakePortal{meta: &webportal.AttendanceMetaDTO{}}

	_, err := NewAttendanceAggregator(client, noDetailConfig(), nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, portal.IsSource(err))
}

func TestFetchEmptyAttendanceYieldsZeroOverall(t *testing.T) {
	client := &fakePortal{}

	snapshot, err := NewAttendanceAggregator(client, noDetailConfig(), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, snapshot.OverallPercentage)
	assert.Empty(t, snapshot.Subjects)
}

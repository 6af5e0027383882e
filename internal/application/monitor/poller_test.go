package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
)

func newTestService(client *fakePortal) *Service {
	aggregator := NewAttendanceAggregator(client, noDetailConfig(), nil)
	resolver := newTestResolver(client, &fakeExtractor{})
	return NewService(aggregator, resolver, portal.NewChangeDetector(0), client, nil)
}

func healthyPortal() *fakePortal {
	return &fakePortal{
		attendance: []webportal.RawRecord{{
			"subjectdesc": "Data Structures and Algorithms",
			"Ltotalclass": float64(40),
			"Ltotalpres":  float64(36),
		}},
		marksSems: []webportal.SemesterRefDTO{oddSemRef()},
		gradeCard: []webportal.RawRecord{{"subjectdesc": "Data Structures and Algorithms", "grade": "B"}},
	}
}

func TestRunCycleStoresBaselineAndState(t *testing.T) {
	client := healthyPortal()
	notifier := &fakeNotifier{}
	store := &fakeStore{}
	poller := NewPoller(newTestService(client), notifier, store, DefaultPollerConfig(), nil)

	require.NoError(t, poller.RunCycle(context.Background()))

	// First cycle is a baseline, not a change.
	assert.Empty(t, notifier.reports)
	assert.Equal(t, 1, store.saves)
	assert.True(t, poller.Status().HasBaseline)
}

func TestRunCycleNotifiesOnChange(t *testing.T) {
	client := healthyPortal()
	notifier := &fakeNotifier{}
	poller := NewPoller(newTestService(client), notifier, nil, DefaultPollerConfig(), nil)

	require.NoError(t, poller.RunCycle(context.Background()))

	// Attendance moves; marks cache still holds the old snapshot, which
	// is fine for this test.
	client.attendance = []webportal.RawRecord{{
		"subjectdesc": "Data Structures and Algorithms",
		"Ltotalclass": float64(42),
		"Ltotalpres":  float64(36),
	}}
	require.NoError(t, poller.RunCycle(context.Background()))

	require.Len(t, notifier.reports, 1)
	assert.True(t, notifier.reports[0].AttendanceChanged)
}

func TestCheckForChangesNoticeOutageDoesNotReannounce(t *testing.T) {
	client := healthyPortal()
	client.notices = []webportal.NoticeDTO{{ID: "n1", Title: "Exam schedule"}}
	service := newTestService(client)

	// Cycle 1: the notice is announced once.
	first, err := service.CheckForChanges(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, first.NewNotices, 1)
	state1 := first.NextState()

	// Cycle 2: the board fetch fails; the cycle degrades instead of
	// pretending the board is empty.
	client.noticesErr = portal.NewError("webportal", "GetNotices", portal.ErrSource, "board down")
	second, err := service.CheckForChanges(context.Background(), &state1)
	require.NoError(t, err)
	assert.Empty(t, second.NewNotices)
	state2 := second.NextState()
	assert.Equal(t, []string{"n1"}, state2.NoticeIDs)

	// Cycle 3: the board recovers with the same notice; no re-announce.
	client.noticesErr = nil
	third, err := service.CheckForChanges(context.Background(), &state2)
	require.NoError(t, err)
	assert.Empty(t, third.NewNotices)
}

func TestRunCycleEscalatesAfterConsecutiveFailures(t *testing.T) {
	client := &fakePortal{sessionErr: portal.NewError("webportal", "Login", portal.ErrSession, "portal down")}
	notifier := &fakeNotifier{}
	poller := NewPoller(newTestService(client), notifier, nil, DefaultPollerConfig(), nil)

	for i := 0; i < 4; i++ {
		assert.Error(t, poller.RunCycle(context.Background()))
	}

	// Exactly one escalation, at the third consecutive failure.
	require.Len(t, notifier.failures, 1)
	assert.Equal(t, 3, notifier.failures[0])
	assert.Equal(t, 4, poller.Status().Failures)
}

func TestRunCycleFailureCounterResetsOnSuccess(t *testing.T) {
	client := healthyPortal()
	notifier := &fakeNotifier{}
	poller := NewPoller(newTestService(client), notifier, nil, DefaultPollerConfig(), nil)

	client.sessionErr = portal.NewError("webportal", "Login", portal.ErrSession, "blip")
	assert.Error(t, poller.RunCycle(context.Background()))
	assert.Error(t, poller.RunCycle(context.Background()))

	client.sessionErr = nil
	require.NoError(t, poller.RunCycle(context.Background()))

	assert.Equal(t, 0, poller.Status().Failures)
	assert.Empty(t, notifier.failures, "two blips must not escalate")
}

func TestSetIntervalClampsToMinimum(t *testing.T) {
	poller := NewPoller(newTestService(healthyPortal()), nil, nil, DefaultPollerConfig(), nil)

	assert.Equal(t, DefaultPollInterval, poller.Interval())
	assert.Equal(t, MinPollInterval, poller.SetInterval(time.Second))
	assert.Equal(t, time.Hour, poller.SetInterval(time.Hour))
	assert.Equal(t, time.Hour, poller.Interval())
}

func TestRestoreLoadsPreviousState(t *testing.T) {
	store := &fakeStore{state: &portal.MonitorState{NoticeIDs: []string{"n1"}, UpdatedAt: time.Now()}}
	client := healthyPortal()
	client.notices = []webportal.NoticeDTO{{ID: "n1", Title: "old"}}
	notifier := &fakeNotifier{}
	poller := NewPoller(newTestService(client), notifier, store, DefaultPollerConfig(), nil)

	require.NoError(t, poller.Restore(context.Background()))
	require.NoError(t, poller.RunCycle(context.Background()))

	// The restored state knows n1, so a restart does not re-announce it.
	assert.Empty(t, notifier.reports)
}

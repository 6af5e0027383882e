package monitor

import (
	"context"
	"log/slog"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
)

// NoticeSource fetches the portal notice board. Optional: portals without a
// notice board report unsupported and notice tracking is skipped.
type NoticeSource interface {
	GetNotices(ctx context.Context) ([]webportal.NoticeDTO, error)
}

// Service is the reconciliation facade shared by the polling cycle and the
// interactive bot handlers.
type Service struct {
	attendance *AttendanceAggregator
	marks      *MarksResolver
	detector   *portal.ChangeDetector
	notices    NoticeSource
	mapper     *webportal.Mapper
	logger     *slog.Logger
}

// NewService creates a new Service. notices may be nil.
func NewService(attendance *AttendanceAggregator, marks *MarksResolver, detector *portal.ChangeDetector, notices NoticeSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		attendance: attendance,
		marks:      marks,
		detector:   detector,
		notices:    notices,
		mapper:     webportal.NewMapper(),
		logger:     logger.With("component", "monitor_service"),
	}
}

// FetchAttendance builds a fresh attendance snapshot.
func (s *Service) FetchAttendance(ctx context.Context) (*portal.AttendanceSnapshot, error) {
	return s.attendance.Fetch(ctx)
}

// FetchLatestMarks returns the latest-semester marks snapshot.
func (s *Service) FetchLatestMarks(ctx context.Context) (*portal.MarksSnapshot, error) {
	return s.marks.FetchLatest(ctx)
}

// ListMarksSemesters returns the selectable semester labels.
func (s *Service) ListMarksSemesters(ctx context.Context) ([]string, error) {
	return s.marks.ListSemesters(ctx)
}

// FetchMarksForSemester returns the marks snapshot for one label.
func (s *Service) FetchMarksForSemester(ctx context.Context, label string) (*portal.MarksSnapshot, error) {
	return s.marks.FetchForSemester(ctx, label)
}

// Threshold returns the configured attendance alert threshold.
func (s *Service) Threshold() float64 {
	return s.detector.Threshold
}

// CheckForChanges runs one full reconciliation pass: fetch attendance,
// latest marks and notices, then diff against the previous state. The
// caller persists the report's next state for the following cycle.
func (s *Service) CheckForChanges(ctx context.Context, previous *portal.MonitorState) (portal.ChangeReport, error) {
	attendance, err := s.attendance.Fetch(ctx)
	if err != nil {
		return portal.ChangeReport{}, err
	}

	marks, err := s.marks.FetchLatest(ctx)
	if err != nil {
		return portal.ChangeReport{}, err
	}

	notices, degraded := s.fetchNotices(ctx)

	return s.detector.Diff(previous, portal.CycleData{
		Attendance:      attendance,
		Marks:           marks,
		Notices:         notices,
		NoticesDegraded: degraded,
	}), nil
}

// fetchNotices reads the notice board. Best-effort: a missing or
// unsupported board just means no notice tracking. A failed call is
// reported as degraded so the change detector keeps the previous
// seen-notice set instead of treating the board as freshly empty.
func (s *Service) fetchNotices(ctx context.Context) ([]portal.Notice, bool) {
	if s.notices == nil {
		return nil, false
	}

	dtos, err := s.notices.GetNotices(ctx)
	if err != nil {
		if portal.IsUnsupported(err) {
			return nil, false
		}
		s.logger.Warn("notice fetch failed", "error", err)
		return nil, true
	}
	return s.mapper.MapNotices(dtos), false
}

// FormattedAttendanceSummary fetches attendance and renders the plain-text
// subject table.
func (s *Service) FormattedAttendanceSummary(ctx context.Context) (string, error) {
	snapshot, err := s.attendance.Fetch(ctx)
	if err != nil {
		return "", err
	}
	return FormatAttendanceSummary(snapshot, s.detector.Threshold), nil
}

// FormattedMarksSummary fetches the latest marks and renders the plain-text
// summary.
func (s *Service) FormattedMarksSummary(ctx context.Context) (string, error) {
	snapshot, err := s.marks.FetchLatest(ctx)
	if err != nil {
		return "", err
	}
	return FormatMarksSummary(snapshot), nil
}

package monitor

import (
	"context"
	"sync"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/cache"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
)

// fakePortal implements AttendanceAPI, MarksAPI and NoticeSource for tests.
type fakePortal struct {
	mu sync.Mutex

	sessionErr error

	meta          *webportal.AttendanceMetaDTO
	attendance    []webportal.RawRecord
	attendanceErr error

	detail    *webportal.DetailedAttendanceDTO
	detailErr error

	gradePoints    *webportal.SgpaCgpaDTO
	gradePointsErr error

	marksSems    []webportal.SemesterRefDTO
	marksSemsErr error
	gradeSems    []webportal.SemesterRefDTO
	gradeSemsErr error

	gradeCard     []webportal.RawRecord
	gradeCardErr  error
	gradeCardFail int // fail this many calls before succeeding

	pdf    []byte
	pdfErr error

	notices    []webportal.NoticeDTO
	noticesErr error

	gradePointsCalls int
	gradeCardCalls   int
	detailCalls      int
	pdfCalls         int
}

func (f *fakePortal) EnsureSession(ctx context.Context) error { return f.sessionErr }

func (f *fakePortal) GetAttendanceMeta(ctx context.Context) (*webportal.AttendanceMetaDTO, error) {
	if f.meta == nil {
		return &webportal.AttendanceMetaDTO{
			Headers:   []webportal.AttendanceHeaderDTO{{HeaderID: "h1"}},
			Semesters: []webportal.SemesterRefDTO{{RegistrationID: "r1", RegistrationCode: "ODD2024"}},
		}, nil
	}
	return f.meta, nil
}

func (f *fakePortal) GetAttendance(ctx context.Context, header webportal.AttendanceHeaderDTO, sem webportal.SemesterRefDTO) ([]webportal.RawRecord, error) {
	return f.attendance, f.attendanceErr
}

func (f *fakePortal) GetSubjectDetailedAttendance(ctx context.Context, req webportal.DetailRequestDTO) (*webportal.DetailedAttendanceDTO, error) {
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()
	return f.detail, f.detailErr
}

func (f *fakePortal) GetSgpaCgpa(ctx context.Context) (*webportal.SgpaCgpaDTO, error) {
	f.mu.Lock()
	f.gradePointsCalls++
	f.mu.Unlock()
	if f.gradePointsErr != nil {
		return nil, f.gradePointsErr
	}
	if f.gradePoints == nil {
		return &webportal.SgpaCgpaDTO{Rows: []webportal.GradePointRowDTO{{SGPA: 8.0, CGPA: 7.5}}}, nil
	}
	return f.gradePoints, nil
}

func (f *fakePortal) GetSemestersForMarks(ctx context.Context) ([]webportal.SemesterRefDTO, error) {
	if f.marksSemsErr != nil {
		return nil, f.marksSemsErr
	}
	return f.marksSems, nil
}

func (f *fakePortal) GetSemestersForGradeCard(ctx context.Context) ([]webportal.SemesterRefDTO, error) {
	if f.gradeSemsErr != nil {
		return nil, f.gradeSemsErr
	}
	return f.gradeSems, nil
}

func (f *fakePortal) GetGradeCard(ctx context.Context, ref webportal.SemesterRefDTO) ([]webportal.RawRecord, error) {
	f.mu.Lock()
	f.gradeCardCalls++
	calls := f.gradeCardCalls
	f.mu.Unlock()
	if f.gradeCardErr != nil && calls <= f.gradeCardFail {
		return nil, f.gradeCardErr
	}
	if f.gradeCardErr != nil && f.gradeCardFail == 0 {
		return nil, f.gradeCardErr
	}
	return f.gradeCard, nil
}

func (f *fakePortal) DownloadMarksPdf(ctx context.Context, ref webportal.SemesterRefDTO) ([]byte, error) {
	f.mu.Lock()
	f.pdfCalls++
	f.mu.Unlock()
	return f.pdf, f.pdfErr
}

func (f *fakePortal) GetNotices(ctx context.Context) ([]webportal.NoticeDTO, error) {
	return f.notices, f.noticesErr
}

// fakeExtractor implements PDFExtractor.
type fakeExtractor struct {
	result map[string]portal.SubjectMarks
	err    error
}

func (f *fakeExtractor) Extract(pdfBytes []byte) (map[string]portal.SubjectMarks, error) {
	return f.result, f.err
}

// fakeNotifier implements Notifier and records calls.
type fakeNotifier struct {
	mu       sync.Mutex
	reports  []portal.ChangeReport
	failures []int
}

func (f *fakeNotifier) NotifyChanges(ctx context.Context, report portal.ChangeReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeNotifier) NotifyFailure(ctx context.Context, consecutive int, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, consecutive)
	return nil
}

// fakeStore implements StateStore in memory.
type fakeStore struct {
	mu    sync.Mutex
	state *portal.MonitorState
	saves int
}

func (f *fakeStore) Load(ctx context.Context) (*portal.MonitorState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeStore) Save(ctx context.Context, state portal.MonitorState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = &state
	f.saves++
	return nil
}

// newTestResolver wires a MarksResolver with in-memory caches.
func newTestResolver(client MarksAPI, extractor PDFExtractor) *MarksResolver {
	return NewMarksResolver(
		client,
		extractor,
		cache.New[*portal.MarksSnapshot](0),
		cache.New[[]string](0),
		DefaultMarksConfig(),
		nil,
	)
}

// Package monitor contains the reconciliation core of the portal watcher:
// attendance aggregation, marks resolution with PDF fallback, change
// detection between polling cycles, and the cycle runner the scheduler
// drives. The polling path and the interactive bot handlers share one set
// of instances from this package.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
)

// AttendanceAPI is the slice of the portal client the aggregator consumes.
type AttendanceAPI interface {
	EnsureSession(ctx context.Context) error
	GetAttendanceMeta(ctx context.Context) (*webportal.AttendanceMetaDTO, error)
	GetAttendance(ctx context.Context, header webportal.AttendanceHeaderDTO, sem webportal.SemesterRefDTO) ([]webportal.RawRecord, error)
	GetSubjectDetailedAttendance(ctx context.Context, req webportal.DetailRequestDTO) (*webportal.DetailedAttendanceDTO, error)
}

// AttendanceConfig contains configuration for the aggregator.
type AttendanceConfig struct {
	// DetailEnhancement enables the best-effort per-subject detailed
	// attendance call.
	DetailEnhancement bool

	// DetailTimeout bounds each detailed attendance call. The detail
	// endpoint is the slowest one the portal has.
	DetailTimeout time.Duration
}

// DefaultAttendanceConfig returns the default aggregator configuration.
func DefaultAttendanceConfig() AttendanceConfig {
	return AttendanceConfig{
		DetailEnhancement: true,
		DetailTimeout:     15 * time.Second,
	}
}

// AttendanceAggregator reconciles the portal's per-subject attendance
// components into one snapshot.
type AttendanceAggregator struct {
	client AttendanceAPI
	mapper *webportal.Mapper
	config AttendanceConfig
	logger *slog.Logger
}

// NewAttendanceAggregator creates a new AttendanceAggregator.
func NewAttendanceAggregator(client AttendanceAPI, config AttendanceConfig, logger *slog.Logger) *AttendanceAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceAggregator{
		client: client,
		mapper: webportal.NewMapper(),
		config: config,
		logger: logger.With("component", "attendance_aggregator"),
	}
}

// Fetch builds a fresh attendance snapshot from the portal. It fails with a
// session error when no session can be established and a source error when
// the attendance endpoints cannot be reached.
func (a *AttendanceAggregator) Fetch(ctx context.Context) (*portal.AttendanceSnapshot, error) {
	if err := a.client.EnsureSession(ctx); err != nil {
		return nil, err
	}

	meta, err := a.client.GetAttendanceMeta(ctx)
	if err != nil {
		return nil, err
	}
	header, okHeader := meta.LatestHeader()
	sem, okSem := meta.LatestSemester()
	if !okHeader || !okSem {
		return nil, portal.NewError("attendance", "Fetch", portal.ErrSource, "portal returned no attendance registrations")
	}

	records, err := a.client.GetAttendance(ctx, header, sem)
	if err != nil {
		return nil, err
	}

	snapshot := &portal.AttendanceSnapshot{
		Subjects:      make(map[string]portal.SubjectAttendance),
		SemesterLabel: a.mapper.MapSemester(sem, 0).DisplayName,
		FetchedAt:     time.Now().UTC(),
	}

	for _, rec := range a.mapper.MapAttendance(records) {
		total := rec.Total()
		if total == 0 {
			// No classes ever scheduled: not a data point.
			continue
		}
		name := rec.SubjectName
		if name == "" {
			name = rec.SubjectCode
		}
		if name == "" {
			continue
		}

		attended := rec.Present()
		percentage := selectPercentage(rec, attended, total)

		if a.config.DetailEnhancement {
			if present, detailTotal, ok := a.detailCounts(ctx, sem, rec); ok && detailTotal > 0 {
				total = detailTotal
				attended = present
				percentage = float64(attended) / float64(total) * 100
			}
		}

		snapshot.Subjects[name] = portal.SubjectAttendance{
			SubjectCode:     rec.SubjectCode,
			TotalClasses:    total,
			AttendedClasses: attended,
			Percentage:      percentage,
			Components: portal.ComponentPercentages{
				Lecture:    rec.LecturePct,
				Tutorial:   rec.TutorialPct,
				Practical:  rec.PracticalPct,
				OverallLTP: rec.LTPPct,
			},
		}
		snapshot.TotalClasses += total
		snapshot.AttendedClasses += attended
	}

	if snapshot.TotalClasses > 0 {
		snapshot.OverallPercentage = float64(snapshot.AttendedClasses) / float64(snapshot.TotalClasses) * 100
	}
	return snapshot, nil
}

// selectPercentage picks the subject percentage by precedence: the combined
// LTP figure, then practical, lecture, tutorial, then the attended/total
// ratio. The portal often populates only one component's percentage field
// even when several components contributed, and the most combined non-zero
// field is the most trustworthy.
func selectPercentage(rec webportal.AttendanceRecord, attended, total int) float64 {
	switch {
	case rec.LTPPct > 0:
		return rec.LTPPct
	case rec.PracticalPct > 0:
		return rec.PracticalPct
	case rec.LecturePct > 0:
		return rec.LecturePct
	case rec.TutorialPct > 0:
		return rec.TutorialPct
	default:
		return float64(attended) / float64(total) * 100
	}
}

// detailCounts attempts the per-lecture detailed attendance call for one
// subject. Best-effort: any failure keeps the aggregate figures.
func (a *AttendanceAggregator) detailCounts(ctx context.Context, sem webportal.SemesterRefDTO, rec webportal.AttendanceRecord) (present, total int, ok bool) {
	if rec.ComponentID == "" {
		return 0, 0, false
	}

	detailCtx, cancel := context.WithTimeout(ctx, a.config.DetailTimeout)
	defer cancel()

	detail, err := a.client.GetSubjectDetailedAttendance(detailCtx, webportal.DetailRequestDTO{
		SubjectComponentID: rec.ComponentID,
		RegistrationID:     sem.RegistrationID,
		RegistrationCode:   sem.RegistrationCode,
		SubjectCode:        rec.SubjectCode,
	})
	if err != nil {
		a.logger.Debug("detail attendance call failed, keeping aggregates",
			"subject", rec.SubjectName,
			"error", err)
		return 0, 0, false
	}
	if len(detail.Entries) == 0 {
		return 0, 0, false
	}

	present, total = a.mapper.CountPresent(detail)
	return present, total, true
}

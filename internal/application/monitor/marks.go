package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/cache"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/webportal"
	"github.com/portal-watch/portal-watch/pkg/retry"
)

// MarksAPI is the slice of the portal client the resolver consumes.
type MarksAPI interface {
	EnsureSession(ctx context.Context) error
	GetSgpaCgpa(ctx context.Context) (*webportal.SgpaCgpaDTO, error)
	GetSemestersForGradeCard(ctx context.Context) ([]webportal.SemesterRefDTO, error)
	GetSemestersForMarks(ctx context.Context) ([]webportal.SemesterRefDTO, error)
	GetGradeCard(ctx context.Context, ref webportal.SemesterRefDTO) ([]webportal.RawRecord, error)
	DownloadMarksPdf(ctx context.Context, ref webportal.SemesterRefDTO) ([]byte, error)
}

// PDFExtractor recovers subject marks from a report PDF.
type PDFExtractor interface {
	Extract(pdfBytes []byte) (map[string]portal.SubjectMarks, error)
}

// SnapshotCache caches marks snapshots. Satisfied by the in-memory TTL
// cache and by the Redis-backed variant.
type SnapshotCache interface {
	GetOrFill(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) (*portal.MarksSnapshot, error)) (*portal.MarksSnapshot, error)
	Delete(key string)
}

// ListCache caches the semester label list.
type ListCache interface {
	GetOrFill(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) ([]string, error)) ([]string, error)
	Delete(key string)
}

// MarksConfig contains configuration for the resolver.
type MarksConfig struct {
	// CacheTTL applies to every marks-related cache key.
	CacheTTL time.Duration

	// PDFFallback enables scraping the generated report PDF when the
	// grade-card API yields no subjects.
	PDFFallback bool
}

// DefaultMarksConfig returns the default resolver configuration.
func DefaultMarksConfig() MarksConfig {
	return MarksConfig{
		CacheTTL:    cache.DefaultTTL,
		PDFFallback: true,
	}
}

// MarksResolver resolves semester lists and per-semester marks, caching
// results and falling back to PDF extraction when the structured grade card
// is empty.
type MarksResolver struct {
	client    MarksAPI
	mapper    *webportal.Mapper
	extractor PDFExtractor
	snapshots SnapshotCache
	lists     ListCache
	retrier   *retry.Retrier
	config    MarksConfig
	logger    *slog.Logger
}

// NewMarksResolver creates a new MarksResolver.
func NewMarksResolver(client MarksAPI, extractor PDFExtractor, snapshots SnapshotCache, lists ListCache, config MarksConfig, logger *slog.Logger) *MarksResolver {
	if config.CacheTTL <= 0 {
		config.CacheTTL = cache.DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MarksResolver{
		client:    client,
		mapper:    webportal.NewMapper(),
		extractor: extractor,
		snapshots: snapshots,
		lists:     lists,
		retrier:   retry.PortalAPIRetrier(webportal.IsRetryable),
		config:    config,
		logger:    logger.With("component", "marks_resolver"),
	}
}

// FetchLatest builds the latest-semester marks snapshot, including the
// SGPA/CGPA figures. Cached under the latest-marks key.
func (r *MarksResolver) FetchLatest(ctx context.Context) (*portal.MarksSnapshot, error) {
	return r.snapshots.GetOrFill(ctx, cache.KeyLatestMarks, r.config.CacheTTL, func(ctx context.Context) (*portal.MarksSnapshot, error) {
		if err := r.client.EnsureSession(ctx); err != nil {
			return nil, err
		}

		var gpDTO *webportal.SgpaCgpaDTO
		err := r.retrier.Do(ctx, func(ctx context.Context) error {
			var callErr error
			gpDTO, callErr = r.client.GetSgpaCgpa(ctx)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		snapshot := &portal.MarksSnapshot{
			Subjects:    make(map[string]portal.SubjectMarks),
			GradePoints: r.mapper.LatestGradePoints(gpDTO),
			FetchedAt:   time.Now().UTC(),
		}

		refs, err := r.semesterRefs(ctx)
		if err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			return snapshot, nil
		}

		latest := refs[0]
		snapshot.SemesterLabel = r.mapper.MapSemester(latest, 0).DisplayName
		subjects, err := r.fetchSubjects(ctx, latest)
		if err != nil {
			return nil, err
		}
		snapshot.Subjects = subjects
		return snapshot, nil
	})
}

// ListSemesters returns the display-name labels of every semester marks can
// be fetched for. Cached under the semester-list key.
func (r *MarksResolver) ListSemesters(ctx context.Context) ([]string, error) {
	return r.lists.GetOrFill(ctx, cache.KeyMarksSemesters, r.config.CacheTTL, func(ctx context.Context) ([]string, error) {
		if err := r.client.EnsureSession(ctx); err != nil {
			return nil, err
		}

		refs, err := r.semesterRefs(ctx)
		if err != nil {
			return nil, err
		}

		labels := make([]string, 0, len(refs))
		for _, sem := range r.mapper.MapSemesters(refs) {
			labels = append(labels, sem.DisplayName)
		}
		return labels, nil
	})
}

// FetchForSemester builds the marks snapshot for one user-selected label.
// The label is resolved by re-deriving the display name of every candidate
// ref with the same derivation ListSemesters used; a label nothing matches
// is a not-found error, never retried.
func (r *MarksResolver) FetchForSemester(ctx context.Context, label string) (*portal.MarksSnapshot, error) {
	return r.snapshots.GetOrFill(ctx, cache.MarksSemesterKey(label), r.config.CacheTTL, func(ctx context.Context) (*portal.MarksSnapshot, error) {
		if err := r.client.EnsureSession(ctx); err != nil {
			return nil, err
		}

		refs, err := r.semesterRefs(ctx)
		if err != nil {
			return nil, err
		}

		ref, found := webportal.SemesterRefDTO{}, false
		for i, candidate := range refs {
			if r.mapper.MapSemester(candidate, i).DisplayName == label {
				ref, found = candidate, true
				break
			}
		}
		if !found {
			return nil, portal.NewError("marks", "FetchForSemester", portal.ErrNotFound, "no semester matches label "+label)
		}

		subjects, err := r.fetchSubjects(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &portal.MarksSnapshot{
			SemesterLabel: label,
			Subjects:      subjects,
			FetchedAt:     time.Now().UTC(),
		}, nil
	})
}

// Invalidate drops every cached marks entry so the next call refetches.
func (r *MarksResolver) Invalidate(labels []string) {
	r.snapshots.Delete(cache.KeyLatestMarks)
	r.lists.Delete(cache.KeyMarksSemesters)
	for _, label := range labels {
		r.snapshots.Delete(cache.MarksSemesterKey(label))
	}
}

// semesterRefs fetches the semester ref list, preferring the marks list and
// falling back to the grade-card list on portals without a marks module.
func (r *MarksResolver) semesterRefs(ctx context.Context) ([]webportal.SemesterRefDTO, error) {
	var refs []webportal.SemesterRefDTO
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		var callErr error
		refs, callErr = r.client.GetSemestersForMarks(ctx)
		return callErr
	})
	if err == nil {
		return refs, nil
	}
	if !portal.IsUnsupported(err) {
		return nil, err
	}

	err = r.retrier.Do(ctx, func(ctx context.Context) error {
		var callErr error
		refs, callErr = r.client.GetSemestersForGradeCard(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// fetchSubjects fetches one semester's grade card and maps it to subject
// marks, falling back to PDF extraction when the structured card is empty.
// The grade-card error after retries propagates; the PDF tier is
// best-effort, and an empty result is not an error - some semesters simply
// have nothing published yet.
func (r *MarksResolver) fetchSubjects(ctx context.Context, ref webportal.SemesterRefDTO) (map[string]portal.SubjectMarks, error) {
	var records []webportal.RawRecord
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		var callErr error
		records, callErr = r.client.GetGradeCard(ctx, ref)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	subjects := make(map[string]portal.SubjectMarks)
	for _, rec := range records {
		if name, marks, ok := r.mapper.MapGradeCardEntry(rec); ok {
			subjects[name] = marks
		}
	}
	if len(subjects) > 0 || !r.config.PDFFallback {
		return subjects, nil
	}

	pdfBytes, err := r.client.DownloadMarksPdf(ctx, ref)
	if err != nil {
		r.logger.Warn("marks pdf download failed", "registration", ref.RegistrationCode, "error", err)
		return subjects, nil
	}

	extracted, err := r.extractor.Extract(pdfBytes)
	if err != nil {
		// A parsing miss degrades to "nothing published", it never
		// aborts the marks fetch.
		r.logger.Warn("marks pdf extraction failed", "registration", ref.RegistrationCode, "error", err)
		return subjects, nil
	}
	if len(extracted) > 0 {
		subjects = extracted
	}
	return subjects, nil
}

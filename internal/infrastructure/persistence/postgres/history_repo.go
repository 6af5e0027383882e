package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

// ══════════════════════════════════════════════════════════════════════════════
// POLL HISTORY REPOSITORY
// Append-only audit trail of poll cycle outcomes.
// ══════════════════════════════════════════════════════════════════════════════

// HistoryRepo records poll cycle outcomes in PostgreSQL.
type HistoryRepo struct {
	conn   *Connection
	logger *slog.Logger
}

// NewHistoryRepo creates a new history repository.
func NewHistoryRepo(conn *Connection, logger *slog.Logger) *HistoryRepo {
	if logger == nil {
		logger = slog.Default()
	}

	return &HistoryRepo{
		conn:   conn,
		logger: logger.With("component", "history_repo"),
	}
}

// RecordCycle appends one row for a completed poll cycle.
func (r *HistoryRepo) RecordCycle(ctx context.Context, report portal.ChangeReport) error {
	var overall *float64
	if report.Current.Attendance != nil {
		v := report.Current.Attendance.OverallPercentage
		overall = &v
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO poll_history
			(attendance_changed, marks_changed, below_threshold, new_notices, overall_percentage)
		VALUES ($1, $2, $3, $4, $5)
	`,
		report.AttendanceChanged,
		report.MarksChanged,
		report.BelowThreshold,
		len(report.NewNotices),
		overall,
	)
	if err != nil {
		return fmt.Errorf("record poll cycle: %w", err)
	}

	return nil
}

// Prune deletes history rows older than the retention window.
func (r *HistoryRepo) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.conn.Exec(ctx,
		`DELETE FROM poll_history WHERE polled_at < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("prune poll history: %w", err)
	}

	return tag.RowsAffected(), nil
}

package handler

import (
	"context"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceHandler handles the /attendance command.
type AttendanceHandler struct {
	service   *monitor.Service
	reports   *presenter.ReportPresenter
	keyboards *presenter.KeyboardBuilder
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(service *monitor.Service, reports *presenter.ReportPresenter, keyboards *presenter.KeyboardBuilder) *AttendanceHandler {
	return &AttendanceHandler{
		service:   service,
		reports:   reports,
		keyboards: keyboards,
	}
}

// Handle fetches a fresh attendance snapshot and renders the subject table.
func (h *AttendanceHandler) Handle(ctx context.Context, _ Request) (Response, error) {
	summary, err := h.service.FormattedAttendanceSummary(ctx)
	if err != nil {
		return errorResponse(err), nil
	}

	return htmlResponse(h.reports.Preformatted(summary), h.keyboards.AttendanceKeyboard()), nil
}

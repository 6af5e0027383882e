package handler

import (
	"context"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StatusHandler handles the /status command.
type StatusHandler struct {
	poller    *monitor.Poller
	reports   *presenter.ReportPresenter
	keyboards *presenter.KeyboardBuilder
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(poller *monitor.Poller, reports *presenter.ReportPresenter, keyboards *presenter.KeyboardBuilder) *StatusHandler {
	return &StatusHandler{
		poller:    poller,
		reports:   reports,
		keyboards: keyboards,
	}
}

// Handle renders the poller's current status.
func (h *StatusHandler) Handle(_ context.Context, _ Request) (Response, error) {
	status := h.poller.Status()
	text := h.reports.Status(status.LastRun, status.LastErr, status.Failures, status.HasBaseline, status.PollInterval)
	return htmlResponse(text, h.keyboards.StatusKeyboard()), nil
}

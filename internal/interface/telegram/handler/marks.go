package handler

import (
	"context"
	"html"
	"strings"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARKS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarksHandler handles the /marks command. Without arguments it shows the
// latest semester; with an argument it resolves the given semester label.
type MarksHandler struct {
	service   *monitor.Service
	reports   *presenter.ReportPresenter
	keyboards *presenter.KeyboardBuilder
}

// NewMarksHandler creates a new marks handler.
func NewMarksHandler(service *monitor.Service, reports *presenter.ReportPresenter, keyboards *presenter.KeyboardBuilder) *MarksHandler {
	return &MarksHandler{
		service:   service,
		reports:   reports,
		keyboards: keyboards,
	}
}

// Handle fetches and renders a marks summary.
func (h *MarksHandler) Handle(ctx context.Context, req Request) (Response, error) {
	label := strings.TrimSpace(req.Args)

	var (
		snapshot *portal.MarksSnapshot
		err      error
	)
	if label == "" {
		snapshot, err = h.service.FetchLatestMarks(ctx)
	} else {
		snapshot, err = h.service.FetchMarksForSemester(ctx, label)
	}
	if err != nil {
		if portal.IsNotFound(err) {
			return h.unknownSemester(ctx, label)
		}
		return errorResponse(err), nil
	}

	summary := monitor.FormatMarksSummary(snapshot)
	return htmlResponse(h.reports.Preformatted(summary), h.keyboards.MarksKeyboard(snapshot.SemesterLabel)), nil
}

// unknownSemester answers an unresolvable label with the selectable list.
func (h *MarksHandler) unknownSemester(ctx context.Context, label string) (Response, error) {
	text := "🤷 I don't know the semester <b>" + html.EscapeString(label) + "</b>."

	labels, err := h.service.ListMarksSemesters(ctx)
	if err != nil || len(labels) == 0 {
		return htmlResponse(text, nil), nil
	}

	text += "\n\nPick one of these:"
	return htmlResponse(text, h.keyboards.SemestersKeyboard(labels)), nil
}

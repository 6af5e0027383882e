package handler

import (
	"context"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEMESTERS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SemestersHandler handles the /semesters command.
type SemestersHandler struct {
	service   *monitor.Service
	keyboards *presenter.KeyboardBuilder
}

// NewSemestersHandler creates a new semesters handler.
func NewSemestersHandler(service *monitor.Service, keyboards *presenter.KeyboardBuilder) *SemestersHandler {
	return &SemestersHandler{
		service:   service,
		keyboards: keyboards,
	}
}

// Handle lists the selectable semester labels as buttons.
func (h *SemestersHandler) Handle(ctx context.Context, _ Request) (Response, error) {
	labels, err := h.service.ListMarksSemesters(ctx)
	if err != nil {
		return errorResponse(err), nil
	}

	if len(labels) == 0 {
		return htmlResponse("🤷 The portal lists no semesters yet.", nil), nil
	}

	return htmlResponse("🗓 <b>Pick a semester:</b>", h.keyboards.SemestersKeyboard(labels)), nil
}

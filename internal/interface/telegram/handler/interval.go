package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IntervalHandler handles the /interval command: without arguments it shows
// the current polling interval, with a minute count it changes it.
type IntervalHandler struct {
	poller *monitor.Poller
}

// NewIntervalHandler creates a new interval handler.
func NewIntervalHandler(poller *monitor.Poller) *IntervalHandler {
	return &IntervalHandler{poller: poller}
}

// Handle shows or changes the polling interval.
func (h *IntervalHandler) Handle(_ context.Context, req Request) (Response, error) {
	arg := strings.TrimSpace(req.Args)
	if arg == "" {
		text := fmt.Sprintf(
			"⏱ Polling every <b>%s</b>.\n\nUse <code>/interval &lt;minutes&gt;</code> to change it (minimum %d).",
			h.poller.Interval(), int(monitor.MinPollInterval.Minutes()),
		)
		return htmlResponse(text, nil), nil
	}

	minutes, err := strconv.Atoi(arg)
	if err != nil || minutes <= 0 {
		return htmlResponse("Usage: <code>/interval &lt;minutes&gt;</code>, e.g. <code>/interval 30</code>.", nil), nil
	}

	requested := time.Duration(minutes) * time.Minute
	applied := h.poller.SetInterval(requested)

	text := fmt.Sprintf("✅ Polling every <b>%s</b> from the next cycle.", applied)
	if applied != requested {
		text += fmt.Sprintf("\n\n%d minutes is below the floor, clamped to %s.", minutes, applied)
	}
	return htmlResponse(text, nil), nil
}

package handler

import (
	"context"

	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StartHandler handles the /start command.
type StartHandler struct {
	keyboards *presenter.KeyboardBuilder
}

// NewStartHandler creates a new start handler.
func NewStartHandler(keyboards *presenter.KeyboardBuilder) *StartHandler {
	return &StartHandler{keyboards: keyboards}
}

// Handle returns the welcome message with the main menu.
func (h *StartHandler) Handle(_ context.Context, _ Request) (Response, error) {
	text := "👋 <b>Portal Watch</b>\n\n" +
		"I keep an eye on the academic portal and ping you when attendance, " +
		"marks or notices change.\n\n" +
		"• /attendance — current attendance table\n" +
		"• /marks [semester] — marks summary\n" +
		"• /semesters — pick a semester\n" +
		"• /interval &lt;minutes&gt; — change the polling interval\n" +
		"• /status — monitor health\n" +
		"• /help — full command reference"

	return htmlResponse(text, h.keyboards.MainMenuKeyboard()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELP HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// HelpHandler handles the /help command.
type HelpHandler struct{}

// NewHelpHandler creates a new help handler.
func NewHelpHandler() *HelpHandler {
	return &HelpHandler{}
}

// Handle returns the command reference.
func (h *HelpHandler) Handle(_ context.Context, _ Request) (Response, error) {
	text := "<b>Commands</b>\n\n" +
		"/attendance — fetch the attendance table. Subjects below the alert " +
		"threshold are marked with <code>!</code>.\n\n" +
		"/marks — marks for the latest semester, with SGPA and CGPA.\n" +
		"/marks &lt;semester&gt; — marks for a specific semester, " +
		"e.g. <code>/marks Odd 2024</code>.\n\n" +
		"/semesters — list selectable semesters.\n\n" +
		"/interval — show the polling interval.\n" +
		"/interval &lt;minutes&gt; — change it (minimum 5 minutes).\n\n" +
		"/status — last check result, failure count and baseline state.\n\n" +
		"Alerts arrive automatically: attendance moves, new marks, new " +
		"notices, and a warning when attendance drops below the threshold."

	return htmlResponse(text, nil), nil
}

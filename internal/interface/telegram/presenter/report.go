package presenter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE REPORT PRESENTER
// Renders polling-cycle outcomes and on-demand snapshots as Telegram HTML.
// Tabular content goes inside <pre> blocks so column alignment survives
// proportional fonts.
// ══════════════════════════════════════════════════════════════════════════════

// ReportPresenter formats change reports and snapshots for Telegram.
type ReportPresenter struct{}

// NewReportPresenter creates a new ReportPresenter.
func NewReportPresenter() *ReportPresenter {
	return &ReportPresenter{}
}

// ChangeAlert renders a change report as an alert message. Returns an empty
// string when the report carries nothing worth announcing.
func (p *ReportPresenter) ChangeAlert(report portal.ChangeReport, threshold float64) string {
	if !report.HasChanges() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("🔔 <b>Portal update</b>\n")

	if report.AttendanceChanged && report.Current.Attendance != nil {
		a := report.Current.Attendance
		sb.WriteString(fmt.Sprintf(
			"\n📋 Attendance moved to <b>%.1f%%</b> (%d/%d classes).\n",
			a.OverallPercentage, a.AttendedClasses, a.TotalClasses,
		))
	}

	if report.BelowThreshold && report.Current.Attendance != nil {
		sb.WriteString(fmt.Sprintf(
			"\n⚠️ Overall attendance <b>%.1f%%</b> is below the %.0f%% floor.\n",
			report.Current.Attendance.OverallPercentage, threshold,
		))
	}

	if report.MarksChanged && report.Current.Marks != nil {
		sb.WriteString("\n📝 New marks are up")
		if cgpa, ok := report.Current.Marks.CGPA(); ok {
			sb.WriteString(fmt.Sprintf(", CGPA now <b>%.2f</b>", cgpa))
		}
		sb.WriteString(". Use /marks for the full summary.\n")
	}

	if len(report.NewNotices) > 0 {
		sb.WriteString(fmt.Sprintf("\n📌 <b>%d new notice(s)</b>\n", len(report.NewNotices)))
		for i, notice := range report.NewNotices {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("… and %d more\n", len(report.NewNotices)-i))
				break
			}
			sb.WriteString("• " + html.EscapeString(notice.Title))
			if !notice.PostedAt.IsZero() {
				sb.WriteString(" <i>(" + timeutil.FormatDate(notice.PostedAt) + ")</i>")
			}
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FailureAlert renders an escalation message after consecutive poll failures.
func (p *ReportPresenter) FailureAlert(consecutive int, err error) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛑 <b>Portal unreachable</b> (%d checks in a row)\n\n", consecutive))
	if err != nil {
		sb.WriteString("<i>" + html.EscapeString(err.Error()) + "</i>\n\n")
	}
	sb.WriteString("Polling continues; you will not be alerted again until it recovers.")
	return sb.String()
}

// Preformatted wraps an already-aligned plain-text block in a <pre> tag.
func (p *ReportPresenter) Preformatted(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}

// Status renders the poller status message.
func (p *ReportPresenter) Status(lastRun time.Time, lastErr error, failures int, hasBaseline bool, pollInterval time.Duration) string {
	var sb strings.Builder
	sb.WriteString("<b>Monitor status</b>\n\n")

	if lastRun.IsZero() {
		sb.WriteString("• Last check: never\n")
	} else {
		sb.WriteString(fmt.Sprintf("• Last check: %s (%s)\n",
			timeutil.FormatDateTime(lastRun), timeutil.FormatRelative(lastRun)))
	}

	if lastErr != nil {
		sb.WriteString("• Last result: ❌ " + html.EscapeString(lastErr.Error()) + "\n")
		sb.WriteString(fmt.Sprintf("• Consecutive failures: %d\n", failures))
	} else if !lastRun.IsZero() {
		sb.WriteString("• Last result: ✅ ok\n")
	}

	if hasBaseline {
		sb.WriteString("• Baseline: stored\n")
	} else {
		sb.WriteString("• Baseline: not yet collected\n")
	}

	sb.WriteString(fmt.Sprintf("• Poll interval: %s\n", pollInterval))
	return strings.TrimRight(sb.String(), "\n")
}

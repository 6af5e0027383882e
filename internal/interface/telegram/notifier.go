package telegram

import (
	"context"
	"log/slog"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/telegram"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// Pushes monitor alerts and digests to the owner chat.
// ══════════════════════════════════════════════════════════════════════════════

// NotifierConfig contains configuration for the notifier.
type NotifierConfig struct {
	// OwnerChatID is the chat that receives all pushed messages.
	OwnerChatID int64

	// Threshold is the attendance floor quoted in change alerts.
	Threshold float64

	// Logger for structured logging.
	Logger *slog.Logger
}

// Notifier delivers poll-cycle alerts and scheduled digests to the owner
// chat over the Telegram API. It satisfies the poller's notification
// contract and the digest job's sender contract.
type Notifier struct {
	config  NotifierConfig
	client  *telegram.Client
	reports *presenter.ReportPresenter
	logger  *slog.Logger
}

// NewNotifier creates a new notifier.
func NewNotifier(client *telegram.Client, config NotifierConfig) *Notifier {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Notifier{
		config:  config,
		client:  client,
		reports: presenter.NewReportPresenter(),
		logger:  config.Logger,
	}
}

// NotifyChanges sends a change alert for a poll cycle. Reports without
// changes produce no message.
func (n *Notifier) NotifyChanges(ctx context.Context, report portal.ChangeReport) error {
	text := n.reports.ChangeAlert(report, n.config.Threshold)
	if text == "" {
		return nil
	}

	n.logger.Info("sending change alert",
		"attendance_changed", report.AttendanceChanged,
		"marks_changed", report.MarksChanged,
		"below_threshold", report.BelowThreshold,
		"new_notices", len(report.NewNotices),
	)

	_, err := n.client.SendHTML(ctx, n.config.OwnerChatID, text)
	return err
}

// NotifyFailure sends a portal-unreachable alert after repeated consecutive
// poll failures.
func (n *Notifier) NotifyFailure(ctx context.Context, consecutive int, err error) error {
	n.logger.Warn("sending failure alert",
		"consecutive_failures", consecutive,
		"error", err,
	)

	_, sendErr := n.client.SendHTML(ctx, n.config.OwnerChatID, n.reports.FailureAlert(consecutive, err))
	return sendErr
}

// SendDigest sends a pre-rendered digest wrapped in a monospace block.
func (n *Notifier) SendDigest(ctx context.Context, text string) error {
	_, err := n.client.SendHTML(ctx, n.config.OwnerChatID, n.reports.Preformatted(text))
	return err
}

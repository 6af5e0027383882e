package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MONITOR STATE STORE
// Single-row JSONB persistence of the last-known portal state. Survives
// restarts so the first cycle after a deploy diffs against a real baseline
// instead of announcing everything as new.
// ══════════════════════════════════════════════════════════════════════════════

// StateStore persists the monitor state in PostgreSQL.
type StateStore struct {
	conn    *Connection
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewStateStore creates a new state store.
func NewStateStore(conn *Connection, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &StateStore{
		conn:    conn,
		retrier: retry.StateStoreRetrier(),
		logger:  logger.With("component", "state_store"),
	}
}

// Load returns the persisted state, or nil when none has been saved yet.
func (s *StateStore) Load(ctx context.Context) (*portal.MonitorState, error) {
	var raw []byte

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		scanErr := s.conn.QueryRow(ctx,
			`SELECT state FROM monitor_state WHERE id = 1`,
		).Scan(&raw)
		if IsNoRows(scanErr) {
			// An empty table is a valid first-run condition, not a blip.
			return retry.Permanent(scanErr)
		}
		return scanErr
	})
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load monitor state: %w", err)
	}

	var state portal.MonitorState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt row is unrecoverable; treat it as no baseline rather
		// than wedging the poller.
		s.logger.Error("stored state is corrupt, discarding", "error", err)
		return nil, nil
	}

	return &state, nil
}

// Save upserts the single state row.
func (s *StateStore) Save(ctx context.Context, state portal.MonitorState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal monitor state: %w", err)
	}

	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		_, execErr := s.conn.Exec(ctx, `
			INSERT INTO monitor_state (id, state, updated_at)
			VALUES (1, $1, NOW())
			ON CONFLICT (id) DO UPDATE
			SET state = EXCLUDED.state, updated_at = NOW()
		`, raw)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save monitor state: %w", err)
	}

	return nil
}

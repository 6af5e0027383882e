// Package postgres implements PostgreSQL persistence for the portal monitor.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE MONITOR STATE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create monitor_state table
-- Version: 001

-- The monitor tracks a single student, so the table holds exactly one row.
-- The snapshot itself is stored as JSONB: the shape evolves with the portal
-- and a rigid column-per-field schema would need a migration per tweak.
CREATE TABLE IF NOT EXISTS monitor_state (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    state JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT single_row CHECK (id = 1)
);
`

const migration001Down = `
DROP TABLE IF EXISTS monitor_state;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE POLL HISTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create poll_history table
-- Version: 002

-- One row per completed poll cycle. Used to answer "when did attendance
-- last move" without keeping full snapshots around forever.
CREATE TABLE IF NOT EXISTS poll_history (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    polled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    attendance_changed BOOLEAN NOT NULL DEFAULT FALSE,
    marks_changed BOOLEAN NOT NULL DEFAULT FALSE,
    below_threshold BOOLEAN NOT NULL DEFAULT FALSE,
    new_notices INTEGER NOT NULL DEFAULT 0,
    overall_percentage DECIMAL(5,2)
);

CREATE INDEX IF NOT EXISTS idx_poll_history_polled_at ON poll_history(polled_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS poll_history;
`

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_monitor_state",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_poll_history",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

package entities

import (
	"database/sql"
	"time"
)

// SyncRun is a row of order_sync_runs.
type SyncRun struct {
	ID           string         `db:"id"`
	Trigger      string         `db:"trigger_name"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   time.Time      `db:"finished_at"`
	Imported     int            `db:"imported"`
	Outcome      string         `db:"outcome"`
	ErrorMessage sql.NullString `db:"error_message"`
}

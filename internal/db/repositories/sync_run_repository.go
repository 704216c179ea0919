package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"diversifia/ordersync/internal/models/entities"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const createSyncRunsTable = `
	CREATE TABLE IF NOT EXISTS order_sync_runs (
		id            VARCHAR(36) PRIMARY KEY,
		trigger_name  VARCHAR(32) NOT NULL,
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP NOT NULL,
		imported      INTEGER NOT NULL DEFAULT 0,
		outcome       VARCHAR(16) NOT NULL,
		error_message TEXT
	)
`

// SyncRunRepo keeps one row per reconciliation pass.
type SyncRunRepo struct {
	db *sqlx.DB
}

// NewSyncRunRepo creates a new sync run history repository
func NewSyncRunRepo(db *sqlx.DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

// EnsureSchema creates order_sync_runs if it does not exist yet.
func (r *SyncRunRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createSyncRunsTable)
	return err
}

// Record inserts run, assigning an id when it has none.
func (r *SyncRunRepo) Record(ctx context.Context, run *entities.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO order_sync_runs (id, trigger_name, started_at, finished_at, imported, outcome, error_message)
		VALUES (:id, :trigger_name, :started_at, :finished_at, :imported, :outcome, :error_message)
	`, run)
	return err
}

// LatestByTrigger returns the most recent run for trigger, or nil when there is none.
func (r *SyncRunRepo) LatestByTrigger(ctx context.Context, trigger string) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.GetContext(ctx, &run, r.db.Rebind(`
		SELECT id, trigger_name, started_at, finished_at, imported, outcome, error_message
		FROM order_sync_runs
		WHERE trigger_name = ?
		ORDER BY started_at DESC
		LIMIT 1
	`), trigger)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Recent returns up to limit runs, newest first.
func (r *SyncRunRepo) Recent(ctx context.Context, limit int) ([]entities.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []entities.SyncRun{}
	err := r.db.SelectContext(ctx, &runs, r.db.Rebind(`
		SELECT id, trigger_name, started_at, finished_at, imported, outcome, error_message
		FROM order_sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`), limit)
	return runs, err
}

// PurgeBefore deletes runs started before cutoff and returns how many were removed.
func (r *SyncRunRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM order_sync_runs WHERE started_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package jobs

import (
	"context"
	"time"

	"diversifia/ordersync/internal/constants"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/services"
)

// DraftSyncer runs one batch pass.
type DraftSyncer interface {
	SyncDrafts(ctx context.Context, trigger string) (*services.SyncResult, error)
}

// HistoryPurger drops old sync run rows.
type HistoryPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderSyncJob imports Dolibarr draft orders on a fixed interval.
type OrderSyncJob struct {
	syncer    DraftSyncer
	purger    HistoryPurger
	retention time.Duration
}

// NewOrderSyncJob creates the scheduled job. purger may be nil; a zero
// retention keeps history forever.
func NewOrderSyncJob(syncer DraftSyncer, purger HistoryPurger, retention time.Duration) *OrderSyncJob {
	return &OrderSyncJob{
		syncer:    syncer,
		purger:    purger,
		retention: retention,
	}
}

// Run executes one scheduled pass. Errors are returned for the caller to log;
// the next tick is the retry.
func (j *OrderSyncJob) Run(ctx context.Context) error {
	if _, err := j.syncer.SyncDrafts(ctx, constants.TriggerScheduled); err != nil {
		return err
	}
	j.purgeHistory(ctx)
	return nil
}

// RunScheduled runs a pass immediately, then on every tick until ctx is done.
// A slow pass delays the next tick rather than overlapping it.
func (j *OrderSyncJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info("Scheduled draft order sync started", "interval", interval.String())

	if err := j.Run(ctx); err != nil {
		logging.Error("Scheduled draft order sync failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				logging.Error("Scheduled draft order sync failed", "error", err)
			}
		case <-ctx.Done():
			logging.Info("Shutting down scheduled draft order sync")
			return
		}
	}
}

func (j *OrderSyncJob) purgeHistory(ctx context.Context) {
	if j.purger == nil || j.retention <= 0 {
		return
	}
	removed, err := j.purger.PurgeBefore(ctx, time.Now().Add(-j.retention))
	if err != nil {
		logging.Warn("Failed to purge sync history", "error", err)
		return
	}
	if removed > 0 {
		logging.Debug("Purged sync history", "removed", removed)
	}
}

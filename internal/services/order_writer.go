package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"diversifia/ordersync/internal/constants"
	"diversifia/ordersync/internal/db/repositories"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/orders"
)

// DocumentStore is a keyed JSON document store with an atomic read-modify-write.
type DocumentStore interface {
	Name() string
	Ping(ctx context.Context) error
	Mutate(ctx context.Context, key string, fn repositories.MutateFunc) (int, error)
	Load(ctx context.Context, key string) ([]json.RawMessage, time.Time, error)
}

// TargetSnapshot is the current size of the ADV document.
type TargetSnapshot struct {
	Entries   int
	UpdatedAt time.Time
}

// OrderWriter commits reconciled orders to the ADV document. Reconciliation
// runs inside the store transaction against the payload read there, so a
// concurrent writer's entries are always seen before deciding what is new.
type OrderWriter struct {
	store      DocumentStore
	key        string
	maxEntries int
	metrics    *metrics.MetricsRegistry
}

// NewOrderWriter creates a writer for the document stored under key.
// metricsReg may be nil.
func NewOrderWriter(store DocumentStore, key string, maxEntries int, metricsReg *metrics.MetricsRegistry) *OrderWriter {
	return &OrderWriter{
		store:      store,
		key:        key,
		maxEntries: maxEntries,
		metrics:    metricsReg,
	}
}

// Commit reconciles candidates against the stored payload and writes the
// result when at least one candidate is new. It returns the reconciliation
// of the attempt that committed and the number of attempts made.
func (w *OrderWriter) Commit(ctx context.Context, candidates []orders.Candidate, mode orders.DedupMode) (orders.Result, int, error) {
	rec := orders.Reconciler{MaxEntries: w.maxEntries, Mode: mode}

	var res orders.Result
	attempts, err := w.store.Mutate(ctx, w.key, func(current []json.RawMessage) ([]json.RawMessage, bool, error) {
		r, err := rec.Reconcile(candidates, current)
		if err != nil {
			return nil, false, err
		}
		res = r
		return r.Payload, r.Payload != nil, nil
	})
	w.observe(attempts, err)
	if err != nil {
		return orders.Result{}, attempts, err
	}

	if res.Payload != nil && w.metrics != nil {
		w.metrics.TargetEntries.Set(float64(len(res.Payload)))
	}
	if res.Evicted > 0 {
		logging.Warn("ADV payload cap reached, oldest entries evicted",
			"key", w.key,
			"evicted", res.Evicted,
			"cap", rec.MaxEntries,
			"dedup", mode.String(),
		)
	}
	logging.Debug("ADV document reconciled",
		"key", w.key,
		"dedup", mode.String(),
		"candidates", len(candidates),
		"imported", len(res.Imported),
		"attempts", attempts,
	)

	return res, attempts, nil
}

// Snapshot reads the document without locking and refreshes the entries gauge.
// A document that was never written reports zero entries.
func (w *OrderWriter) Snapshot(ctx context.Context) (TargetSnapshot, error) {
	payload, updatedAt, err := w.store.Load(ctx, w.key)
	if err != nil {
		return TargetSnapshot{}, err
	}
	if w.metrics != nil {
		w.metrics.TargetEntries.Set(float64(len(payload)))
	}
	return TargetSnapshot{Entries: len(payload), UpdatedAt: updatedAt}, nil
}

// Ping checks the target store.
func (w *OrderWriter) Ping(ctx context.Context) error {
	return w.store.Ping(ctx)
}

func (w *OrderWriter) observe(attempts int, err error) {
	if w.metrics == nil || attempts == 0 {
		return
	}
	store := w.store.Name()

	conflicts := attempts - 1
	final := "committed"
	switch {
	case errors.Is(err, constants.ErrTxConflict):
		conflicts = attempts
		final = ""
	case err != nil:
		final = "failed"
	}

	if conflicts > 0 {
		w.metrics.TxAttemptsTotal.WithLabelValues(store, "conflict").Add(float64(conflicts))
	}
	if final != "" {
		w.metrics.TxAttemptsTotal.WithLabelValues(store, final).Inc()
	}
}

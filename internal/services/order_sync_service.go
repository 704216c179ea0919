package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"diversifia/ordersync/internal/constants"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/models/entities"
	"diversifia/ordersync/internal/orders"
)

// DraftSource extracts draft orders and their lookups from Dolibarr.
type DraftSource interface {
	FetchDraftBatch(ctx context.Context) (*entities.DraftBatch, error)
	Ping(ctx context.Context) error
}

// RunHistory persists one row per pass.
type RunHistory interface {
	Record(ctx context.Context, run *entities.SyncRun) error
	LatestByTrigger(ctx context.Context, trigger string) (*entities.SyncRun, error)
	Recent(ctx context.Context, limit int) ([]entities.SyncRun, error)
}

// SyncResult summarises one batch pass.
type SyncResult struct {
	Trigger  string
	Drafts   int
	Imported int
	IDs      []string
	Skipped  map[orders.SkipReason]int
	Evicted  int
	Attempts int
	Duration time.Duration
}

// WebhookResult is the outcome of a single-order ingestion.
type WebhookResult struct {
	ID       string
	Imported bool
}

// OrderSyncService runs the extract, normalise, reconcile and commit pipeline
// for every trigger. Passes may run concurrently; the writer's transaction is
// the only coordination between them.
type OrderSyncService struct {
	source  DraftSource
	writer  *OrderWriter
	history RunHistory
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

// NewOrderSyncService wires the pipeline. history and metricsReg may be nil.
func NewOrderSyncService(source DraftSource, writer *OrderWriter, history RunHistory, metricsReg *metrics.MetricsRegistry) *OrderSyncService {
	return &OrderSyncService{
		source:  source,
		writer:  writer,
		history: history,
		metrics: metricsReg,
		now:     time.Now,
	}
}

// SyncDrafts imports every new Dolibarr draft order into the ADV document.
// Any extraction or commit failure aborts the pass without a partial write.
func (s *OrderSyncService) SyncDrafts(ctx context.Context, trigger string) (*SyncResult, error) {
	start := s.now()
	result := &SyncResult{Trigger: trigger, Skipped: map[orders.SkipReason]int{}}
	log := logging.With("trigger", trigger)

	log.Infow("Draft order sync started")

	batch, err := s.source.FetchDraftBatch(ctx)
	if err != nil {
		s.finish(ctx, trigger, start, result, err)
		return nil, err
	}
	result.Drafts = len(batch.Orders)

	if result.Drafts == 0 {
		s.finish(ctx, trigger, start, result, nil)
		return result, nil
	}

	candidates := BuildBatchCandidates(batch, start)

	res, attempts, err := s.writer.Commit(ctx, candidates, orders.DedupBothRefs)
	result.Attempts = attempts
	if err != nil {
		s.finish(ctx, trigger, start, result, err)
		return nil, err
	}

	result.Imported = len(res.Imported)
	result.Skipped = res.Skipped
	result.Evicted = res.Evicted
	for _, o := range res.Imported {
		result.IDs = append(result.IDs, o.ID)
	}

	s.finish(ctx, trigger, start, result, nil)
	return result, nil
}

// IngestWebhook imports one order pushed by Dolibarr. Only the contract
// reference is checked for duplicates. A duplicate is not an error.
func (s *OrderSyncService) IngestWebhook(ctx context.Context, in orders.WebhookOrder) (*WebhookResult, error) {
	if orders.CleanRef(in.Ref) == "" {
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidPayload, "ref is required")
	}

	start := s.now()
	candidate := orders.BuildWebhookCandidate(in, start)
	result := &SyncResult{Trigger: constants.TriggerWebhook, Drafts: 1, Skipped: map[orders.SkipReason]int{}}

	res, attempts, err := s.writer.Commit(ctx, []orders.Candidate{candidate}, orders.DedupContractRef)
	result.Attempts = attempts
	if err != nil {
		s.finish(ctx, constants.TriggerWebhook, start, result, err)
		return nil, err
	}

	result.Imported = len(res.Imported)
	result.Skipped = res.Skipped
	result.Evicted = res.Evicted
	if result.Imported > 0 {
		result.IDs = []string{candidate.Order.ID}
	}
	s.finish(ctx, constants.TriggerWebhook, start, result, nil)

	return &WebhookResult{ID: candidate.Order.ID, Imported: result.Imported > 0}, nil
}

// LatestRuns returns the most recent pass per trigger. Triggers that never
// ran are absent. It returns an empty map when history is disabled.
func (s *OrderSyncService) LatestRuns(ctx context.Context) (map[string]*entities.SyncRun, error) {
	runs := make(map[string]*entities.SyncRun)
	if s.history == nil {
		return runs, nil
	}
	for _, trigger := range []string{
		constants.TriggerScheduled,
		constants.TriggerManual,
		constants.TriggerWebhook,
		constants.TriggerCLI,
	} {
		run, err := s.history.LatestByTrigger(ctx, trigger)
		if err != nil {
			return nil, fmt.Errorf("load last %s run: %w", trigger, err)
		}
		if run != nil {
			runs[trigger] = run
		}
	}
	return runs, nil
}

// RecentRuns returns up to limit passes across all triggers, newest first.
func (s *OrderSyncService) RecentRuns(ctx context.Context, limit int) ([]entities.SyncRun, error) {
	if s.history == nil {
		return nil, nil
	}
	runs, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent runs: %w", err)
	}
	return runs, nil
}

// TargetSnapshot reports the size and last write time of the ADV document.
func (s *OrderSyncService) TargetSnapshot(ctx context.Context) (TargetSnapshot, error) {
	return s.writer.Snapshot(ctx)
}

// HistoryEnabled reports whether passes are recorded.
func (s *OrderSyncService) HistoryEnabled() bool { return s.history != nil }

// Health pings the source pool and the target store.
func (s *OrderSyncService) Health(ctx context.Context) map[string]error {
	return map[string]error{
		"source": s.source.Ping(ctx),
		"target": s.writer.Ping(ctx),
	}
}

// BuildBatchCandidates joins the extracted rows into candidates, keeping the
// source row order.
func BuildBatchCandidates(batch *entities.DraftBatch, now time.Time) []orders.Candidate {
	candidates := make([]orders.Candidate, 0, len(batch.Orders))
	for _, o := range batch.Orders {
		src := orders.SourceOrder{
			ID:          o.RowID,
			Ref:         o.Ref.String,
			ContractRef: batch.ContractRefs[o.RowID],
		}
		if o.DateCreation.Valid {
			src.CreatedAt = o.DateCreation.Time
		}
		if code, ok := batch.OfferCodes[o.RowID]; ok {
			src.OfferCode = &code
		}

		var author string
		if o.AuthorID.Valid {
			src.AuthorID = o.AuthorID.Int64
			author = batch.AuthorNames[o.AuthorID.Int64]
		}

		var customer *orders.Customer
		if o.SocID.Valid {
			src.CustomerID = o.SocID.Int64
			if soc, ok := batch.Customers[o.SocID.Int64]; ok {
				customer = &orders.Customer{
					ID:    soc.RowID,
					Name:  soc.Nom.String,
					Phone: soc.Phone.String,
					Town:  soc.Town.String,
				}
			}
		}

		candidates = append(candidates, orders.BuildCandidate(src, customer, author, now))
	}
	return candidates
}

// finish logs the pass, updates metrics and records it in history.
func (s *OrderSyncService) finish(ctx context.Context, trigger string, start time.Time, result *SyncResult, passErr error) {
	finished := s.now()
	result.Duration = finished.Sub(start)

	outcome := constants.OutcomeSuccess
	switch {
	case passErr != nil:
		outcome = constants.OutcomeFailure
	case result.Imported == 0:
		outcome = constants.OutcomeNoop
	}

	log := logging.With("trigger", trigger)
	if passErr != nil {
		log.Errorw("Draft order sync failed",
			"error", passErr,
			"drafts", result.Drafts,
			"attempts", result.Attempts,
			"duration", result.Duration.String(),
		)
	} else {
		log.Infow("Draft order sync completed",
			"drafts", result.Drafts,
			"imported", result.Imported,
			"ids", result.IDs,
			"skipped", result.Skipped,
			"evicted", result.Evicted,
			"attempts", result.Attempts,
			"duration", result.Duration.String(),
		)
	}

	if s.metrics != nil {
		s.metrics.SyncPassesTotal.WithLabelValues(trigger, outcome).Inc()
		s.metrics.SyncPassDuration.WithLabelValues(trigger).Observe(result.Duration.Seconds())
		if result.Imported > 0 {
			s.metrics.OrdersImported.WithLabelValues(trigger).Add(float64(result.Imported))
		}
		for reason, n := range result.Skipped {
			s.metrics.OrdersSkipped.WithLabelValues(string(reason)).Add(float64(n))
		}
	}

	if s.history == nil {
		return
	}

	run := &entities.SyncRun{
		Trigger:    trigger,
		StartedAt:  start,
		FinishedAt: finished,
		Imported:   result.Imported,
		Outcome:    outcome,
	}
	if passErr != nil {
		run.ErrorMessage = sql.NullString{String: passErr.Error(), Valid: true}
	}

	// The caller's context may already be cancelled once the response is written.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Record(hctx, run); err != nil {
		log.Warnw("Failed to record sync run", "error", err)
	}
}

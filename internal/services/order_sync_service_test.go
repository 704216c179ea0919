package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"diversifia/ordersync/internal/constants"
	"diversifia/ordersync/internal/db/repositories"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/models/entities"
	gormModels "diversifia/ordersync/internal/models/gorm"
	"diversifia/ordersync/internal/orders"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Mock DraftSource
type mockDraftSource struct {
	fetchFunc func(ctx context.Context) (*entities.DraftBatch, error)
}

func (m *mockDraftSource) FetchDraftBatch(ctx context.Context) (*entities.DraftBatch, error) {
	return m.fetchFunc(ctx)
}

func (m *mockDraftSource) Ping(ctx context.Context) error { return nil }

func staticSource(batch *entities.DraftBatch) *mockDraftSource {
	return &mockDraftSource{fetchFunc: func(ctx context.Context) (*entities.DraftBatch, error) {
		return batch, nil
	}}
}

// memoryStore is a versioned in-memory document with optimistic commits.
type memoryStore struct {
	mu          sync.Mutex
	payload     []json.RawMessage
	version     int
	updatedAt   time.Time
	maxAttempts int
	mutateCalls int
	// onRead runs after the snapshot is taken and before the callback.
	onRead func(attempt int)
}

func newMemoryStore() *memoryStore { return &memoryStore{maxAttempts: 5} }

func (m *memoryStore) Name() string { return "memory" }
func (m *memoryStore) Ping(ctx context.Context) error { return nil }

func (m *memoryStore) Mutate(ctx context.Context, key string, fn repositories.MutateFunc) (int, error) {
	m.mu.Lock()
	m.mutateCalls++
	m.mu.Unlock()

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		m.mu.Lock()
		snapshot := append([]json.RawMessage(nil), m.payload...)
		version := m.version
		m.mu.Unlock()

		if m.onRead != nil {
			m.onRead(attempt)
		}

		next, write, err := fn(snapshot)
		if err != nil {
			return attempt, err
		}
		if !write {
			return attempt, nil
		}

		m.mu.Lock()
		if m.version != version {
			m.mu.Unlock()
			continue
		}
		m.payload = next
		m.version++
		m.updatedAt = time.Now()
		m.mu.Unlock()
		return attempt, nil
	}
	return m.maxAttempts, fmt.Errorf("%w: %s", constants.ErrTxConflict, key)
}

func (m *memoryStore) Load(ctx context.Context, key string) ([]json.RawMessage, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]json.RawMessage(nil), m.payload...), m.updatedAt, nil
}

func (m *memoryStore) entries(t *testing.T) []orders.ImportedOrder {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]orders.ImportedOrder, 0, len(m.payload))
	for _, raw := range m.payload {
		var o orders.ImportedOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			t.Fatalf("decode entry: %v", err)
		}
		out = append(out, o)
	}
	return out
}

// Mock RunHistory
type mockHistory struct {
	mu   sync.Mutex
	runs []entities.SyncRun
}

func (h *mockHistory) Record(ctx context.Context, run *entities.SyncRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, *run)
	return nil
}

func (h *mockHistory) LatestByTrigger(ctx context.Context, trigger string) (*entities.SyncRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.runs) - 1; i >= 0; i-- {
		if h.runs[i].Trigger == trigger {
			run := h.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

func (h *mockHistory) Recent(ctx context.Context, limit int) ([]entities.SyncRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []entities.SyncRun
	for i := len(h.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.runs[i])
	}
	return out, nil
}

func validString(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
func validInt(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }

// exampleBatch is draft order 501 with a padded contract override and an unknown offer code.
func exampleBatch() *entities.DraftBatch {
	return &entities.DraftBatch{
		Orders: []entities.DoliOrder{{
			RowID:        501,
			Ref:          validString("CMD-501"),
			DateCreation: sql.NullTime{Time: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), Valid: true},
			AuthorID:     validInt(7),
			SocID:        validInt(42),
		}},
		AuthorNames: map[int64]string{7: "Sara Alaoui"},
		Customers: map[int64]entities.DoliSociete{
			42: {RowID: 42, Nom: validString("acme maroc"), Phone: validString("06 00 00 00 00"), Town: validString(" Rabat ")},
		},
		OfferCodes:   map[int64]int{501: 999},
		ContractRefs: map[int64]string{501: " CMD-501 "},
	}
}

func TestOrderSyncService_ImportsOnceThenNoop(t *testing.T) {
	store := newMemoryStore()
	history := &mockHistory{}
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	service := NewOrderSyncService(staticSource(exampleBatch()), NewOrderWriter(store, "adv_orders", 2000, reg), history, reg)
	ctx := context.Background()

	first, err := service.SyncDrafts(ctx, constants.TriggerManual)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Imported != 1 {
		t.Fatalf("Expected 1 imported order, got %d", first.Imported)
	}

	entries := store.entries(t)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 stored entry, got %d", len(entries))
	}
	got := entries[0]
	if got.RefContrat != "CMD-501" {
		t.Errorf("Expected contract ref 'CMD-501', got %q", got.RefContrat)
	}
	if got.Offre != "À qualifier" {
		t.Errorf("Expected pending offer label, got %q", got.Offre)
	}
	if got.ID != "DOLI-501" || got.RaisonSociale != "ACME MAROC" || got.Telephone != "0600000000" || got.Ville != "Rabat" {
		t.Errorf("Unexpected entry fields: %+v", got)
	}
	if got.Commercial != "Sara Alaoui" || got.DateDepot != "2024-05-01T10:30" {
		t.Errorf("Unexpected author/date: %q %q", got.Commercial, got.DateDepot)
	}

	second, err := service.SyncDrafts(ctx, constants.TriggerManual)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Imported != 0 {
		t.Errorf("Expected second pass to import nothing, got %d", second.Imported)
	}
	if second.Skipped[orders.SkipDuplicate] != 1 {
		t.Errorf("Expected 1 duplicate skip, got %v", second.Skipped)
	}
	if len(store.entries(t)) != 1 {
		t.Errorf("Second pass must not change the payload")
	}

	if len(history.runs) != 2 {
		t.Fatalf("Expected 2 recorded runs, got %d", len(history.runs))
	}
	if history.runs[0].Outcome != constants.OutcomeSuccess || history.runs[1].Outcome != constants.OutcomeNoop {
		t.Errorf("Unexpected outcomes: %s, %s", history.runs[0].Outcome, history.runs[1].Outcome)
	}

	if v := testutil.ToFloat64(reg.OrdersImported.WithLabelValues(constants.TriggerManual)); v != 1 {
		t.Errorf("Expected imported counter 1, got %v", v)
	}
}

func TestOrderSyncService_ConcurrentPassesImportOnce(t *testing.T) {
	store := newMemoryStore()

	// Both passes read the empty document before either commits.
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.onRead = func(attempt int) {
		if attempt == 1 {
			barrier.Done()
			barrier.Wait()
		}
	}

	service := NewOrderSyncService(staticSource(exampleBatch()), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		imported int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := service.SyncDrafts(context.Background(), constants.TriggerScheduled)
			if err != nil {
				t.Errorf("pass failed: %v", err)
				return
			}
			mu.Lock()
			imported += res.Imported
			mu.Unlock()
		}()
	}
	wg.Wait()

	if imported != 1 {
		t.Errorf("Expected exactly 1 import across both passes, got %d", imported)
	}
	if n := len(store.entries(t)); n != 1 {
		t.Errorf("Expected 1 stored entry, got %d", n)
	}
}

func TestOrderSyncService_SourceFailureWritesNothing(t *testing.T) {
	store := newMemoryStore()
	history := &mockHistory{}
	source := &mockDraftSource{fetchFunc: func(ctx context.Context) (*entities.DraftBatch, error) {
		return nil, fmt.Errorf("%w: dial tcp: timeout", constants.ErrSourceUnavailable)
	}}
	service := NewOrderSyncService(source, NewOrderWriter(store, "adv_orders", 2000, nil), history, nil)

	_, err := service.SyncDrafts(context.Background(), constants.TriggerScheduled)
	if !errors.Is(err, constants.ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
	if store.mutateCalls != 0 {
		t.Errorf("Store must not be touched when extraction fails")
	}
	if len(history.runs) != 1 || history.runs[0].Outcome != constants.OutcomeFailure || !history.runs[0].ErrorMessage.Valid {
		t.Errorf("Expected one failed run with an error message, got %+v", history.runs)
	}
}

func TestOrderSyncService_NoDraftsSkipsStore(t *testing.T) {
	store := newMemoryStore()
	service := NewOrderSyncService(staticSource(&entities.DraftBatch{}), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)

	res, err := service.SyncDrafts(context.Background(), constants.TriggerScheduled)
	if err != nil {
		t.Fatalf("SyncDrafts: %v", err)
	}
	if res.Imported != 0 || store.mutateCalls != 0 {
		t.Errorf("Expected a no-op pass, got imported=%d mutateCalls=%d", res.Imported, store.mutateCalls)
	}
}

func TestOrderSyncService_ConflictExhausted(t *testing.T) {
	store := newMemoryStore()
	store.maxAttempts = 3
	store.onRead = func(attempt int) {
		// Another writer commits after every read.
		store.mu.Lock()
		store.version++
		store.mu.Unlock()
	}
	service := NewOrderSyncService(staticSource(exampleBatch()), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)

	_, err := service.SyncDrafts(context.Background(), constants.TriggerManual)
	if !errors.Is(err, constants.ErrTxConflict) {
		t.Fatalf("Expected ErrTxConflict, got %v", err)
	}
	if n := len(store.entries(t)); n != 0 {
		t.Errorf("Expected nothing committed, got %d entries", n)
	}
}

func TestOrderSyncService_MissingCustomerAndUnknownAuthor(t *testing.T) {
	batch := &entities.DraftBatch{
		Orders: []entities.DoliOrder{
			{RowID: 1, Ref: validString("CMD-1"), AuthorID: validInt(99), SocID: validInt(42)},
			{RowID: 2, Ref: validString("CMD-2"), SocID: validInt(404)},
		},
		AuthorNames: map[int64]string{},
		Customers: map[int64]entities.DoliSociete{
			42: {RowID: 42, Nom: validString("")},
		},
		OfferCodes:   map[int64]int{},
		ContractRefs: map[int64]string{},
	}
	store := newMemoryStore()
	service := NewOrderSyncService(staticSource(batch), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)

	res, err := service.SyncDrafts(context.Background(), constants.TriggerManual)
	if err != nil {
		t.Fatalf("SyncDrafts: %v", err)
	}
	if res.Imported != 1 || res.Skipped[orders.SkipMissingCustomer] != 1 {
		t.Fatalf("Expected 1 import and 1 missing customer, got %d %v", res.Imported, res.Skipped)
	}

	got := store.entries(t)[0]
	if got.Commercial != "Dolibarr Sync" {
		t.Errorf("Expected sync seller fallback, got %q", got.Commercial)
	}
	if got.RaisonSociale != "CLIENT INCONNU" {
		t.Errorf("Expected unknown customer fallback, got %q", got.RaisonSociale)
	}
}

func TestOrderSyncService_IngestWebhook(t *testing.T) {
	store := newMemoryStore()
	history := &mockHistory{}
	service := NewOrderSyncService(staticSource(&entities.DraftBatch{}), NewOrderWriter(store, "adv_orders", 2000, nil), history, nil)
	ctx := context.Background()

	if _, err := service.IngestWebhook(ctx, orders.WebhookOrder{Ref: "   "}); !errors.Is(err, constants.ErrInvalidPayload) {
		t.Fatalf("Expected ErrInvalidPayload for a blank ref, got %v", err)
	}
	if store.mutateCalls != 0 || len(history.runs) != 0 {
		t.Fatalf("Validation failures must not reach the store or history")
	}

	res, err := service.IngestWebhook(ctx, orders.WebhookOrder{Ref: " CMD-9 ", SocName: "Atlas", SocPhone: "05 22", SocTown: "Casablanca"})
	if err != nil {
		t.Fatalf("IngestWebhook: %v", err)
	}
	if !res.Imported || res.ID != "DOLI-CMD-9" {
		t.Errorf("Expected DOLI-CMD-9 imported, got %+v", res)
	}

	entry := store.entries(t)[0]
	if !entry.IsConfirmed || entry.Offre != "À qualifier" || entry.Commercial != "Dolibarr Import" {
		t.Errorf("Unexpected webhook entry: %+v", entry)
	}

	dup, err := service.IngestWebhook(ctx, orders.WebhookOrder{Ref: "CMD-9"})
	if err != nil {
		t.Fatalf("duplicate IngestWebhook: %v", err)
	}
	if dup.Imported {
		t.Errorf("Expected duplicate webhook to be skipped")
	}
	if n := len(store.entries(t)); n != 1 {
		t.Errorf("Expected 1 entry after duplicate webhook, got %d", n)
	}
	if last, _ := history.LatestByTrigger(ctx, constants.TriggerWebhook); last == nil || last.Outcome != constants.OutcomeNoop {
		t.Errorf("Expected the duplicate to be recorded as a no-op, got %+v", last)
	}
}

func TestOrderSyncService_WebhookChecksContractRefOnly(t *testing.T) {
	store := newMemoryStore()
	existing, _ := json.Marshal(map[string]string{"refContrat": "CT-1", "doliRef": "CMD-77"})
	store.payload = []json.RawMessage{existing}
	service := NewOrderSyncService(staticSource(&entities.DraftBatch{}), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)

	res, err := service.IngestWebhook(context.Background(), orders.WebhookOrder{Ref: "CMD-77"})
	if err != nil {
		t.Fatalf("IngestWebhook: %v", err)
	}
	if !res.Imported {
		t.Errorf("Expected webhook to ignore source refs of existing entries")
	}
}

func TestOrderSyncService_WithGormStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&gormModels.TargetDocument{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	store := repositories.NewDocumentGormRepo(db, 5)
	service := NewOrderSyncService(staticSource(exampleBatch()), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)
	ctx := context.Background()

	for i, want := range []int{1, 0} {
		res, err := service.SyncDrafts(ctx, constants.TriggerCLI)
		if err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
		if res.Imported != want {
			t.Errorf("pass %d: expected %d imported, got %d", i+1, want, res.Imported)
		}
	}

	payload, _, err := store.Load(ctx, "adv_orders")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(payload) != 1 {
		t.Errorf("Expected 1 stored entry, got %d", len(payload))
	}
}

func TestOrderSyncService_StatusReads(t *testing.T) {
	store := newMemoryStore()
	history := &mockHistory{}
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	service := NewOrderSyncService(staticSource(exampleBatch()), NewOrderWriter(store, "adv_orders", 2000, reg), history, reg)
	ctx := context.Background()

	snap, err := service.TargetSnapshot(ctx)
	if err != nil {
		t.Fatalf("TargetSnapshot before any write: %v", err)
	}
	if snap.Entries != 0 || !snap.UpdatedAt.IsZero() {
		t.Errorf("Expected an empty document, got %+v", snap)
	}

	for _, trigger := range []string{constants.TriggerScheduled, constants.TriggerManual} {
		if _, err := service.SyncDrafts(ctx, trigger); err != nil {
			t.Fatalf("%s pass: %v", trigger, err)
		}
	}

	snap, err = service.TargetSnapshot(ctx)
	if err != nil {
		t.Fatalf("TargetSnapshot: %v", err)
	}
	if snap.Entries != 1 || snap.UpdatedAt.IsZero() {
		t.Errorf("Expected 1 entry with a write time, got %+v", snap)
	}
	if v := testutil.ToFloat64(reg.TargetEntries); v != 1 {
		t.Errorf("Expected entries gauge 1, got %v", v)
	}

	recent, err := service.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(recent) != 1 || recent[0].Trigger != constants.TriggerManual {
		t.Errorf("Expected the manual pass as most recent, got %+v", recent)
	}

	disabled := NewOrderSyncService(staticSource(exampleBatch()), NewOrderWriter(store, "adv_orders", 2000, nil), nil, nil)
	if runs, err := disabled.RecentRuns(ctx, 5); err != nil || runs != nil {
		t.Errorf("Expected no runs without history, got %v %v", runs, err)
	}
}

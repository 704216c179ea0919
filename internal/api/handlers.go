package api

import (
	"context"
	"time"

	"diversifia/ordersync/internal/models/entities"
	"diversifia/ordersync/internal/orders"
	"diversifia/ordersync/internal/services"
)

// SyncService is the part of services.OrderSyncService the handlers use.
type SyncService interface {
	SyncDrafts(ctx context.Context, trigger string) (*services.SyncResult, error)
	IngestWebhook(ctx context.Context, in orders.WebhookOrder) (*services.WebhookResult, error)
	LatestRuns(ctx context.Context) (map[string]*entities.SyncRun, error)
	RecentRuns(ctx context.Context, limit int) ([]entities.SyncRun, error)
	TargetSnapshot(ctx context.Context) (services.TargetSnapshot, error)
	HistoryEnabled() bool
	Health(ctx context.Context) map[string]error
}

// Settings is the configuration echoed by the status endpoint.
type Settings struct {
	Store       string
	DocumentKey string
	Interval    time.Duration
}

type Handlers struct {
	sync     SyncService
	settings Settings
	upSince  time.Time
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(sync SyncService, settings Settings, upSince time.Time) *Handlers {
	return &Handlers{
		sync:     sync,
		settings: settings,
		upSince:  upSince,
	}
}

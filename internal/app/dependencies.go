package app

import (
	"context"
	"fmt"
	"time"

	"diversifia/ordersync/internal/common"
	"diversifia/ordersync/internal/config"
	"diversifia/ordersync/internal/db"
	"diversifia/ordersync/internal/db/repositories"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies owns every connection of the process. The composition root
// builds it once and closes it on shutdown.
type Dependencies struct {
	Source   *sqlx.DB
	Portal   *sqlx.DB
	Redis    *redis.Client
	Store    services.DocumentStore
	SyncRuns *repositories.SyncRunRepo
	Sync     *services.OrderSyncService
}

// InitDependencies opens the Dolibarr pool, the configured target store and the
// optional sync history, then wires the sync service. metricsReg may be nil.
func InitDependencies(ctx context.Context, cfg *config.Config, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	deps := &Dependencies{}

	source, err := db.NewMySQLPool(cfg.Source)
	if err != nil {
		return nil, err
	}
	deps.Source = source
	logging.Info("Connected to Dolibarr (sqlx)",
		"host", cfg.Source.Host,
		"max_conns", cfg.Source.MaxConns,
	)

	switch cfg.Sync.TargetStore {
	case config.StoreRedis:
		client, err := common.NewRedisClient(cfg.Redis)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = client
		deps.Store = repositories.NewDocumentRedisRepo(client, cfg.Sync.TxMaxAttempts)
	default:
		orm, err := db.NewPostgresORM(cfg.Postgres.DSN())
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Store = repositories.NewDocumentGormRepo(orm, cfg.Sync.TxMaxAttempts)
	}
	logging.Info("Target store ready", "store", deps.Store.Name(), "key", cfg.Sync.DocumentKey)

	var history services.RunHistory
	if cfg.Postgres.Enabled() {
		portal, err := db.NewPostgres(cfg.Postgres.DSN())
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Portal = portal

		runs := repositories.NewSyncRunRepo(portal)
		if err := runs.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to create order_sync_runs: %w", err)
		}
		deps.SyncRuns = runs
		history = runs
	} else {
		logging.Warn("PG_HOST not set, sync run history disabled")
	}

	extractor := repositories.NewDolibarrRepo(source, cfg.Source.TablePrefix, cfg.Sync.AuthorCacheTTL, metricsReg)
	writer := services.NewOrderWriter(deps.Store, cfg.Sync.DocumentKey, cfg.Sync.MaxEntries, metricsReg)
	deps.Sync = services.NewOrderSyncService(extractor, writer, history, metricsReg)

	return deps, nil
}

// Close releases every open connection. Safe on a partially built value.
func (d *Dependencies) Close() {
	if d.Source != nil {
		if err := d.Source.Close(); err != nil {
			logging.Warn("Failed to close Dolibarr pool", "error", err)
		}
	}
	if d.Portal != nil {
		if err := d.Portal.Close(); err != nil {
			logging.Warn("Failed to close portal database", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			logging.Warn("Failed to close redis client", "error", err)
		}
	}
	if closer, ok := d.Store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.Warn("Failed to close target store", "error", err)
		}
	}
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 15 * time.Second

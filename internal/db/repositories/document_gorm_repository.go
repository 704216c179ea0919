package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"diversifia/ordersync/internal/constants"
	gormModels "diversifia/ordersync/internal/models/gorm"

	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentGormRepo stores keyed JSON documents in the sync_documents table.
// Writes happen inside a transaction that locks the row and checks its version.
type DocumentGormRepo struct {
	db          *gormlib.DB
	maxAttempts int
	now         func() time.Time
}

// NewDocumentGormRepo creates a GORM-backed document store.
func NewDocumentGormRepo(db *gormlib.DB, maxAttempts int) *DocumentGormRepo {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &DocumentGormRepo{db: db, maxAttempts: maxAttempts, now: time.Now}
}

// Name identifies the store in logs and metrics.
func (r *DocumentGormRepo) Name() string { return "postgres" }

// Ping checks the underlying connection.
func (r *DocumentGormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (r *DocumentGormRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Mutate runs fn against the document under key in a read-modify-write
// transaction, retrying when a concurrent writer got there first.
// It returns the number of attempts made.
func (r *DocumentGormRepo) Mutate(ctx context.Context, key string, fn MutateFunc) (int, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
			return r.mutateOnce(tx, key, fn)
		})
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, errConflict) {
			return attempt, err
		}
		if attempt == r.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
			return attempt, fmt.Errorf("%w: %w", constants.ErrTargetStore, err)
		}
	}
	return r.maxAttempts, fmt.Errorf("%w: key %s after %d attempts", constants.ErrTxConflict, key, r.maxAttempts)
}

func (r *DocumentGormRepo) mutateOnce(tx *gormlib.DB, key string, fn MutateFunc) error {
	var doc gormModels.TargetDocument
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doc_key = ?", key).
		Limit(1).
		Find(&doc)
	if res.Error != nil {
		return fmt.Errorf("%w: read %s: %w", constants.ErrTargetStore, key, res.Error)
	}
	exists := res.RowsAffected > 0

	var current []json.RawMessage
	if exists && len(doc.Payload) > 0 {
		if err := json.Unmarshal(doc.Payload, &current); err != nil {
			return fmt.Errorf("%w: decode %s: %w", constants.ErrTargetStore, key, err)
		}
	}

	next, write, err := fn(current)
	if err != nil || !write {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", constants.ErrTargetStore, key, err)
	}
	now := r.now().UTC()

	if !exists {
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gormModels.TargetDocument{
			Key:       key,
			Payload:   datatypes.JSON(data),
			Version:   1,
			UpdatedAt: now,
		})
		if res.Error != nil {
			return fmt.Errorf("%w: create %s: %w", constants.ErrTargetStore, key, res.Error)
		}
		if res.RowsAffected == 0 {
			return errConflict
		}
		return nil
	}

	res = tx.Model(&gormModels.TargetDocument{}).
		Where("doc_key = ? AND version = ?", key, doc.Version).
		Updates(map[string]interface{}{
			"payload":    datatypes.JSON(data),
			"version":    doc.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: update %s: %w", constants.ErrTargetStore, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return errConflict
	}
	return nil
}

// Load returns the current payload and last update time without locking.
// The import path always goes through Mutate.
func (r *DocumentGormRepo) Load(ctx context.Context, key string) ([]json.RawMessage, time.Time, error) {
	var doc gormModels.TargetDocument
	res := r.db.WithContext(ctx).Where("doc_key = ?", key).Limit(1).Find(&doc)
	if res.Error != nil {
		return nil, time.Time{}, fmt.Errorf("%w: read %s: %w", constants.ErrTargetStore, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, time.Time{}, nil
	}

	var payload []json.RawMessage
	if len(doc.Payload) > 0 {
		if err := json.Unmarshal(doc.Payload, &payload); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: decode %s: %w", constants.ErrTargetStore, key, err)
		}
	}
	return payload, doc.UpdatedAt, nil
}

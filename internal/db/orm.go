package db

import (
	"fmt"

	gormModels "diversifia/ordersync/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresORM opens the GORM handle backing the ADV target document and
// migrates its table.
func NewPostgresORM(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&gormModels.TargetDocument{}); err != nil {
		return nil, fmt.Errorf("failed to migrate target documents: %w", err)
	}

	return db, nil
}

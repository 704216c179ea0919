package gorm

import (
	"time"

	"gorm.io/datatypes"
)

// TargetDocument is a keyed JSON document; the ADV order list lives under one key.
// Version is bumped on every write and used as the compare-and-swap token.
type TargetDocument struct {
	Key       string         `gorm:"column:doc_key;primaryKey;type:varchar(128)"`
	Payload   datatypes.JSON `gorm:"column:payload;not null"`
	Version   int64          `gorm:"column:version;not null;default:0"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (TargetDocument) TableName() string {
	return "sync_documents"
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DataProduct is one catalogued data product. The enriched metadata document
// is stored as a JSONB payload; UID and ContentHash carry the identity and
// dedup invariants (at most one row per UID, at most one row per hash).
type DataProduct struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_data_product_uid" json:"uid"`
	ExecutionBlock string         `gorm:"column:execution_block;not null;index" json:"execution_block"`
	ContentHash    string         `gorm:"column:content_hash;type:char(64);uniqueIndex:idx_data_product_hash" json:"content_hash"`
	Data           datatypes.JSON `gorm:"not null" json:"data"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (DataProduct) TableName() string { return "data_product" }

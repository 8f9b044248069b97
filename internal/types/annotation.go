package types

import (
	"time"

	"github.com/google/uuid"
)

// DataProductAnnotation is a free-text note a user attaches to a data
// product. Create when AnnotationID is zero, update otherwise.
type DataProductAnnotation struct {
	AnnotationID      uint      `gorm:"primaryKey;autoIncrement;column:annotation_id" json:"annotation_id,omitempty"`
	DataProductUID    uuid.UUID `gorm:"type:uuid;not null;index" json:"data_product_uid"`
	AnnotationText    string    `gorm:"not null" json:"annotation_text"`
	UserPrincipalName string    `gorm:"not null" json:"user_principal_name"`
	TimestampCreated  time.Time `gorm:"not null;default:now()" json:"timestamp_created"`
	TimestampModified time.Time `gorm:"not null;default:now()" json:"timestamp_modified"`
}

func (DataProductAnnotation) TableName() string { return "data_product_annotation" }

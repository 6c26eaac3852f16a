package integration

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SyncStatusRecorded = "recorded"
	SyncStatusFailed   = "failed"
)

// SyncLog is an append-only record of a synchronization event with an outside system.
type SyncLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Source     string `gorm:"column:source;not null;index" json:"source"`
	EntityType string `gorm:"column:entity_type;not null;index:idx_integration_sync_log_entity,priority:1" json:"entity_type"`
	EntityID   string `gorm:"column:entity_id;not null;index:idx_integration_sync_log_entity,priority:2" json:"entity_id"`
	Action     string `gorm:"column:action;not null" json:"action"`
	ExternalID string `gorm:"column:external_id" json:"external_id"`
	Status     string `gorm:"column:status;not null" json:"status"`
	Error      string `gorm:"column:error" json:"error,omitempty"`

	Payload datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (SyncLog) TableName() string { return "integration_sync_log" }

func (l *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the persisted form of a hub event (listing transition,
// settlement). External dispatchers (mail, messaging, invoicing) consume
// these; the engine only produces them.
type Notification struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	Topic string `gorm:"type:varchar(50);not null;index"`
	Kind  string `gorm:"type:varchar(50);not null;index"`

	EntityID uint64         `gorm:"index"`
	Details  datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BidActive   = "active"
	BidAccepted = "accepted"
	BidRejected = "rejected"
)

// Bid is a client's counter-offer against a listed resale. Several bids may
// compete on one listing; at most one transitions to accepted per settlement.
type Bid struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ListingID      uint64 `gorm:"not null;index"`
	BidderClientID uint64 `gorm:"not null;index"`

	Price  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Volume decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Bid) TableName() string {
	return "bids"
}

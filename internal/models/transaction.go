package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the immutable settlement record written when a bid is
// accepted. Nothing updates it after creation except the PnLPaid flag set by
// back-office payout.
type Transaction struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Reference string `gorm:"type:varchar(64);not null;uniqueIndex"`

	ListingID      uint64 `gorm:"not null;index"`
	BidID          uint64 `gorm:"not null;uniqueIndex"`
	SaleID         uint64 `gorm:"not null;index"`
	SellerClientID uint64 `gorm:"not null;index"`
	BuyerClientID  uint64 `gorm:"not null;index"`

	CostBasis  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	FinalPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Volume     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	SellerGain decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Commission decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	PnLPaid bool `gorm:"column:pnl_paid;not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Transaction) TableName() string {
	return "transactions"
}

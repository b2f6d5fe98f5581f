package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseCoverage hedges a vessel's purchase exposure, the buy-side mirror
// of SaleCoverage.
type PurchaseCoverage struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	VesselID uint64 `gorm:"not null;index"`

	Product   string `gorm:"type:varchar(50);not null;index"`
	Reference string `gorm:"type:varchar(100);not null;index"`

	Contracts    int64           `gorm:"not null;default:0"`
	Tonnage      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	FuturesPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	TradedAt  time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PurchaseCoverage) TableName() string {
	return "purchase_coverages"
}

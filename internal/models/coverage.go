package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleCoverage is a futures position hedging a sale. SaleID is nil for
// orphaned coverage: the originating sale's volume was reduced below the
// hedge's tonnage after the hedge was booked. Orphaned records stay visible
// to futures administration and are never deleted.
type SaleCoverage struct {
	ID     uint64  `gorm:"primaryKey;autoIncrement"`
	SaleID *uint64 `gorm:"index"`

	Product   string `gorm:"type:varchar(50);not null;index"`
	Reference string `gorm:"type:varchar(100);not null;index"`

	Contracts    int64           `gorm:"not null;default:0"`
	Tonnage      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	FuturesPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	TradedAt  time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SaleCoverage) TableName() string {
	return "sale_coverages"
}

func (c SaleCoverage) Orphaned() bool {
	return c.SaleID == nil
}

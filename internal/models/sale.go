package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a client's claim against a vessel. Volume shrinks when part of the
// position is resold on the secondary market; lineage is preserved through
// ParentSaleID when a sale is rolled.
type Sale struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	VesselID uint64 `gorm:"not null;index"`
	ClientID uint64 `gorm:"not null;index"`

	Volume decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	PricingMode string          `gorm:"type:varchar(10);not null"`
	Reference   string          `gorm:"type:varchar(100);index"`
	Premium     decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	FlatPrice   decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`

	ParentSaleID *uint64 `gorm:"index"`
	Status       string  `gorm:"type:varchar(20);not null;default:'active';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Sale) TableName() string {
	return "sales"
}

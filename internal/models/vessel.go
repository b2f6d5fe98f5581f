package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PricingPrime = "prime"
	PricingFlat  = "flat"

	IncotermFOB = "FOB"
	IncotermCFR = "CFR"
)

// Vessel is a physical cargo purchased by the desk. Quantity shrinks when a
// slice is rolled onto a new reference; the roll creates a child vessel so
// history is never rewritten.
type Vessel struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"type:varchar(200);not null"`
	Product string `gorm:"type:varchar(50);not null;index"`

	Quantity decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	PricingMode string          `gorm:"type:varchar(10);not null"`
	Reference   string          `gorm:"type:varchar(100);index"`
	Premium     decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	FlatPrice   decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`

	Incoterm    string          `gorm:"type:varchar(10);not null;default:'CFR'"`
	FreightRate decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`

	ParentVesselID *uint64 `gorm:"index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Vessel) TableName() string {
	return "vessels"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferencePrice is the latest quote per reference instrument, supplied by
// the upstream feed. Read-only from the engine's perspective.
type ReferencePrice struct {
	Reference string          `gorm:"primaryKey;type:varchar(100)"`
	Price     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Source    string          `gorm:"type:varchar(50)"`
	QuotedAt  time.Time       `gorm:"type:timestamptz;not null"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ReferencePrice) TableName() string {
	return "reference_prices"
}

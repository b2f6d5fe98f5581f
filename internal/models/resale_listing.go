package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ListingPendingValidation = "pending_validation"
	ListingListed            = "listed"
	ListingRejected          = "rejected"
	ListingWithdrawn         = "withdrawn"
	ListingSettled           = "settled"

	PositionCovered   = "covered"
	PositionUncovered = "uncovered"
)

// ResaleListing is a client's offer to sell a slice of one of their sale
// positions on the secondary market. CostBasis freezes the underlying sale's
// PRU (or flat price) at submission time; settlement gain is computed against
// it. ValidationExpiry is advisory: listings past it while still pending are
// flagged to the admin, never auto-transitioned.
type ResaleListing struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	SaleID         uint64 `gorm:"not null;index"`
	SellerClientID uint64 `gorm:"not null;index"`

	Volume       decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	AskPrice     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	CostBasis    decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	PositionType string          `gorm:"type:varchar(20);not null"`

	Status           string     `gorm:"type:varchar(30);not null;default:'pending_validation';index"`
	ValidationExpiry time.Time  `gorm:"type:timestamptz;not null"`
	ValidatedAt      *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ResaleListing) TableName() string {
	return "resale_listings"
}

// ExpiredPending reports whether the listing overstayed its validation
// window without admin action.
func (l ResaleListing) ExpiredPending(now time.Time) bool {
	return l.Status == ListingPendingValidation && now.After(l.ValidationExpiry)
}

package hedging

import (
	"errors"

	"github.com/shopspring/decimal"

	"graindesk/internal/product"
)

var (
	ErrInvalidRollVolume = errors.New("roll volume out of range")
	ErrSameReference     = errors.New("roll target equals current reference")
	ErrMissingReference  = errors.New("missing reference instrument")
)

// VolumeToContracts converts a physical tonnage into a whole number of
// futures contracts, rounding to the nearest contract.
func VolumeToContracts(volume decimal.Decimal, p product.Product) (int64, error) {
	size, err := product.ContractSize(p)
	if err != nil {
		return 0, err
	}
	if volume.IsNegative() {
		return 0, ErrInvalidRollVolume
	}
	return volume.Div(size).Round(0).IntPart(), nil
}

// ContractsToVolume converts a contract count into its physical tonnage.
func ContractsToVolume(contracts int64, p product.Product) (decimal.Decimal, error) {
	size, err := product.ContractSize(p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return size.Mul(decimal.NewFromInt(contracts)), nil
}

// Overcoverage returns the tonnage by which a contract-denominated hedge
// exceeds the remaining physical volume it covers. Zero when fully absorbed.
func Overcoverage(remaining decimal.Decimal, contracts int64, p product.Product) (decimal.Decimal, error) {
	covered, err := ContractsToVolume(contracts, p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return OvercoverageTonnage(remaining, covered), nil
}

// OvercoverageTonnage is the tonnage-denominated form of Overcoverage,
// usable for products without a contract size.
func OvercoverageTonnage(remaining, covered decimal.Decimal) decimal.Decimal {
	excess := covered.Sub(remaining)
	if excess.IsNegative() {
		return decimal.Zero
	}
	return excess
}

// Split computes the slice of a single coverage record to detach when the
// covered volume shrank by at least excess tonnes. For contract-denominated
// records the detached slice is rounded up to whole contracts so the
// remaining link never stays over-covered; tonnage-only records split
// exactly. It returns the detached tonnage and contract count; both are zero
// when nothing needs to move.
func Split(tonnage decimal.Decimal, contracts int64, excess decimal.Decimal, p product.Product) (decimal.Decimal, int64, error) {
	if !excess.IsPositive() || !tonnage.IsPositive() {
		return decimal.Zero, 0, nil
	}
	if excess.GreaterThanOrEqual(tonnage) {
		return tonnage, contracts, nil
	}
	if contracts <= 0 {
		return excess, 0, nil
	}
	size, err := product.ContractSize(p)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}
	detach := excess.Div(size).Ceil().IntPart()
	if detach > contracts {
		detach = contracts
	}
	return size.Mul(decimal.NewFromInt(detach)), detach, nil
}

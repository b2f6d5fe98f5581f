package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"graindesk/internal/product"
)

var ErrZeroVolumePosition = errors.New("cannot price a zero-volume position")

const (
	ModePrime = "prime"
	ModeFlat  = "flat"
)

// HedgeSlice is a hedged sub-volume of a position and the futures price it
// was locked at.
type HedgeSlice struct {
	Volume decimal.Decimal
	Price  decimal.Decimal
}

// Input carries everything needed to price one position.
type Input struct {
	Mode           string
	Product        product.Product
	Volume         decimal.Decimal
	Premium        decimal.Decimal
	FlatPrice      decimal.Decimal
	ReferencePrice decimal.Decimal
	Hedges         []HedgeSlice
}

// Result is the priced position. OvercoverageTonnage is a consistency
// warning: hedged volume above the position volume is reported, never
// clamped away and never an error.
type Result struct {
	PRU                  decimal.Decimal
	BlendedPrice         decimal.Decimal
	WeightedFuturesPrice decimal.Decimal
	HedgedVolume         decimal.Decimal
	UnhedgedVolume       decimal.Decimal
	CoveragePct          decimal.Decimal
	OvercoverageTonnage  decimal.Decimal
}

// ComputePRU derives the weighted-average unit cost of a position.
//
// Prime positions blend the volume-weighted futures price of the hedged part
// with the current reference price over the unhedged part, add the premium
// and convert the quoted unit into USD per tonne. Flat positions are already
// fully determined and return the flat price unchanged.
func ComputePRU(in Input) (Result, error) {
	if !in.Volume.IsPositive() {
		return Result{}, ErrZeroVolumePosition
	}
	if in.Mode == ModeFlat {
		return Result{
			PRU:            in.FlatPrice,
			BlendedPrice:   in.FlatPrice,
			UnhedgedVolume: in.Volume,
			CoveragePct:    decimal.Zero,
		}, nil
	}

	factor, err := product.Factor(in.Product)
	if err != nil {
		return Result{}, err
	}

	hedged := decimal.Zero
	notional := decimal.Zero
	for _, h := range in.Hedges {
		hedged = hedged.Add(h.Volume)
		notional = notional.Add(h.Volume.Mul(h.Price))
	}

	res := Result{
		HedgedVolume:        hedged,
		OvercoverageTonnage: decimal.Zero,
	}
	weighted := decimal.Zero
	if hedged.IsPositive() {
		weighted = notional.Div(hedged)
	}
	res.WeightedFuturesPrice = weighted

	blendHedged := hedged
	if hedged.GreaterThan(in.Volume) {
		res.OvercoverageTonnage = hedged.Sub(in.Volume)
		blendHedged = in.Volume
	}
	res.UnhedgedVolume = in.Volume.Sub(blendHedged)

	blended := weighted.Mul(blendHedged).
		Add(in.ReferencePrice.Mul(res.UnhedgedVolume)).
		Div(in.Volume)
	res.BlendedPrice = blended
	res.PRU = blended.Add(in.Premium).Mul(factor)
	res.CoveragePct = hedged.Div(in.Volume).Mul(decimal.NewFromInt(100))
	return res, nil
}

// Weighted is one sample for WeightedAverage.
type Weighted struct {
	Value  decimal.Decimal
	Weight decimal.Decimal
}

// WeightedAverage returns the weight-averaged value of the samples, zero when
// the total weight is zero. All portfolio roll-ups use this, never an
// arithmetic mean.
func WeightedAverage(samples []Weighted) decimal.Decimal {
	total := decimal.Zero
	sum := decimal.Zero
	for _, s := range samples {
		total = total.Add(s.Weight)
		sum = sum.Add(s.Value.Mul(s.Weight))
	}
	if !total.IsPositive() {
		return decimal.Zero
	}
	return sum.Div(total)
}

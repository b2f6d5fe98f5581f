package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"graindesk/internal/hedging"
	"graindesk/internal/models"
	"graindesk/internal/pricing"
	"graindesk/internal/product"
	"graindesk/internal/repository"
)

// PositionService records vessels and sales and derives their cost metrics.
// PRU and coverage are computed on read, never stored: the store holds raw
// transactional facts only.
type PositionService struct {
	Repo   repository.Repository
	Prices PriceSource
	Logger *zap.Logger
}

type CreateVesselInput struct {
	Name        string
	Product     product.Product
	Quantity    decimal.Decimal
	PricingMode string
	Reference   string
	Premium     decimal.Decimal
	FlatPrice   decimal.Decimal
	Incoterm    string
	FreightRate decimal.Decimal
}

func (s *PositionService) CreateVessel(ctx context.Context, in CreateVesselInput) (*models.Vessel, error) {
	if _, err := product.Lookup(in.Product); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, ErrInvalidInput
	}
	mode := strings.ToLower(strings.TrimSpace(in.PricingMode))
	if mode != models.PricingPrime && mode != models.PricingFlat {
		return nil, ErrInvalidInput
	}
	if mode == models.PricingPrime && strings.TrimSpace(in.Reference) == "" {
		return nil, hedging.ErrMissingReference
	}
	term := strings.ToUpper(strings.TrimSpace(in.Incoterm))
	if term == "" {
		term = models.IncotermCFR
	}
	if term != models.IncotermFOB && term != models.IncotermCFR {
		return nil, ErrInvalidInput
	}
	if term == models.IncotermFOB && !in.FreightRate.IsPositive() {
		return nil, ErrMissingFreightRate
	}

	item := &models.Vessel{
		Name:        strings.TrimSpace(in.Name),
		Product:     string(in.Product),
		Quantity:    in.Quantity,
		PricingMode: mode,
		Reference:   strings.TrimSpace(in.Reference),
		Premium:     in.Premium,
		FlatPrice:   in.FlatPrice,
		Incoterm:    term,
		FreightRate: in.FreightRate,
	}
	if err := s.Repo.InsertVessel(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

type CreateSaleInput struct {
	VesselID    uint64
	ClientID    uint64
	Volume      decimal.Decimal
	PricingMode string
	Reference   string
	Premium     decimal.Decimal
	FlatPrice   decimal.Decimal
}

// CreateSale books a client position against a vessel. The balance check and
// the insert share one transaction with the vessel row locked, so two
// concurrent sales cannot both fit into the same remaining quantity.
func (s *PositionService) CreateSale(ctx context.Context, in CreateSaleInput) (*models.Sale, error) {
	if !in.Volume.IsPositive() {
		return nil, ErrInvalidInput
	}
	mode := strings.ToLower(strings.TrimSpace(in.PricingMode))
	if mode != models.PricingPrime && mode != models.PricingFlat {
		return nil, ErrInvalidInput
	}
	if mode == models.PricingPrime && strings.TrimSpace(in.Reference) == "" {
		return nil, hedging.ErrMissingReference
	}

	item := &models.Sale{
		VesselID:    in.VesselID,
		ClientID:    in.ClientID,
		Volume:      in.Volume,
		PricingMode: mode,
		Reference:   strings.TrimSpace(in.Reference),
		Premium:     in.Premium,
		FlatPrice:   in.FlatPrice,
		Status:      "active",
	}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		vessel, err := s.Repo.GetVesselForUpdateTx(ctx, tx, in.VesselID)
		if err != nil {
			return err
		}
		if vessel == nil {
			return ErrNotFound
		}
		sold, err := s.Repo.SumActiveSaleVolumeByVesselTx(ctx, tx, in.VesselID)
		if err != nil {
			return err
		}
		if sold.Add(in.Volume).GreaterThan(vessel.Quantity) {
			return ErrVolumeExceedsBalance
		}
		return s.Repo.InsertSaleTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// PRUView is the priced position returned to callers. Warnings carry
// consistency findings (over-coverage); they never block the computation.
type PRUView struct {
	SaleID               uint64          `json:"sale_id"`
	PRU                  decimal.Decimal `json:"pru"`
	BlendedPrice         decimal.Decimal `json:"blended_price"`
	WeightedFuturesPrice decimal.Decimal `json:"weighted_futures_price"`
	HedgedVolume         decimal.Decimal `json:"hedged_volume"`
	UnhedgedVolume       decimal.Decimal `json:"unhedged_volume"`
	CoveragePct          decimal.Decimal `json:"coverage_pct"`
	ReferencePrice       decimal.Decimal `json:"reference_price"`
	Warnings             []string        `json:"warnings,omitempty"`
}

// ComputePRU prices one sale from its raw facts and the current reference
// quote. The read is an eventually-consistent snapshot; callers re-run it
// when underlying data moves.
func (s *PositionService) ComputePRU(ctx context.Context, saleID uint64) (*PRUView, error) {
	sale, err := s.Repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrNotFound
	}
	vessel, err := s.Repo.GetVesselByID(ctx, sale.VesselID)
	if err != nil {
		return nil, err
	}
	if vessel == nil {
		return nil, ErrNotFound
	}

	in := pricing.Input{
		Mode:      sale.PricingMode,
		Product:   product.Product(vessel.Product),
		Volume:    sale.Volume,
		Premium:   sale.Premium,
		FlatPrice: sale.FlatPrice,
	}
	var refPrice decimal.Decimal
	if sale.PricingMode == models.PricingPrime {
		quote, err := s.Prices.Get(ctx, sale.Reference)
		if err != nil {
			return nil, err
		}
		if quote == nil {
			return nil, ErrPriceUnavailable
		}
		refPrice = quote.Price
		in.ReferencePrice = refPrice

		coverages, err := s.Repo.ListSaleCoveragesBySaleID(ctx, saleID)
		if err != nil {
			return nil, err
		}
		for _, c := range coverages {
			in.Hedges = append(in.Hedges, pricing.HedgeSlice{Volume: c.Tonnage, Price: c.FuturesPrice})
		}
	}

	res, err := pricing.ComputePRU(in)
	if err != nil {
		return nil, err
	}
	view := &PRUView{
		SaleID:               saleID,
		PRU:                  res.PRU,
		BlendedPrice:         res.BlendedPrice,
		WeightedFuturesPrice: res.WeightedFuturesPrice,
		HedgedVolume:         res.HedgedVolume,
		UnhedgedVolume:       res.UnhedgedVolume,
		CoveragePct:          res.CoveragePct,
		ReferencePrice:       refPrice,
	}
	if res.OvercoverageTonnage.IsPositive() {
		view.Warnings = append(view.Warnings,
			"over-coverage: hedge tonnage exceeds sale volume by "+res.OvercoverageTonnage.String()+"t")
	}
	return view, nil
}

// vesselPurchasePRU prices a vessel's purchase side, FOB freight included in
// the landed cost. Shared with the P&L aggregator.
func (s *PositionService) vesselPurchasePRU(ctx context.Context, vessel *models.Vessel) (pricing.Result, error) {
	in := pricing.Input{
		Mode:      vessel.PricingMode,
		Product:   product.Product(vessel.Product),
		Volume:    vessel.Quantity,
		Premium:   vessel.Premium,
		FlatPrice: vessel.FlatPrice,
	}
	if vessel.PricingMode == models.PricingPrime {
		quote, err := s.Prices.Get(ctx, vessel.Reference)
		if err != nil {
			return pricing.Result{}, err
		}
		if quote == nil {
			return pricing.Result{}, ErrPriceUnavailable
		}
		in.ReferencePrice = quote.Price

		coverages, err := s.Repo.ListPurchaseCoveragesByVesselID(ctx, vessel.ID)
		if err != nil {
			return pricing.Result{}, err
		}
		for _, c := range coverages {
			in.Hedges = append(in.Hedges, pricing.HedgeSlice{Volume: c.Tonnage, Price: c.FuturesPrice})
		}
	}
	res, err := pricing.ComputePRU(in)
	if err != nil {
		return pricing.Result{}, err
	}
	if vessel.Incoterm == models.IncotermFOB {
		res.PRU = res.PRU.Add(vessel.FreightRate)
	}
	return res, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

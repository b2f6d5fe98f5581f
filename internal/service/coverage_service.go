package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"graindesk/internal/hedging"
	"graindesk/internal/models"
	"graindesk/internal/product"
	"graindesk/internal/repository"
)

// CoverageService books futures hedges against sales and vessels. Contract
// counts are converted to tonnage through the product's contract size;
// products without one only accept tonnage input. Over-coverage is surfaced
// as a warning and never rejected.
type CoverageService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type RecordCoverageInput struct {
	Contracts    int64
	Tonnage      decimal.Decimal
	FuturesPrice decimal.Decimal
	TradedAt     time.Time
}

func (s *CoverageService) resolveTonnage(p product.Product, in RecordCoverageInput) (decimal.Decimal, int64, error) {
	if in.Contracts > 0 {
		tonnage, err := hedging.ContractsToVolume(in.Contracts, p)
		if err != nil {
			return decimal.Decimal{}, 0, err
		}
		return tonnage, in.Contracts, nil
	}
	if !in.Tonnage.IsPositive() {
		return decimal.Decimal{}, 0, ErrInvalidInput
	}
	return in.Tonnage, 0, nil
}

func (s *CoverageService) RecordSaleCoverage(ctx context.Context, saleID uint64, in RecordCoverageInput) (*models.SaleCoverage, []string, error) {
	sale, err := s.Repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if sale == nil {
		return nil, nil, ErrNotFound
	}
	vessel, err := s.Repo.GetVesselByID(ctx, sale.VesselID)
	if err != nil {
		return nil, nil, err
	}
	if vessel == nil {
		return nil, nil, ErrNotFound
	}
	if !in.FuturesPrice.IsPositive() {
		return nil, nil, ErrInvalidInput
	}

	p := product.Product(vessel.Product)
	tonnage, contracts, err := s.resolveTonnage(p, in)
	if err != nil {
		return nil, nil, err
	}

	tradedAt := in.TradedAt
	if tradedAt.IsZero() {
		tradedAt = nowUTC()
	}
	sid := saleID
	item := &models.SaleCoverage{
		SaleID:       &sid,
		Product:      vessel.Product,
		Reference:    sale.Reference,
		Contracts:    contracts,
		Tonnage:      tonnage,
		FuturesPrice: in.FuturesPrice,
		TradedAt:     tradedAt,
	}
	if err := s.Repo.InsertSaleCoverage(ctx, item); err != nil {
		return nil, nil, err
	}

	var warnings []string
	existing, err := s.Repo.ListSaleCoveragesBySaleID(ctx, saleID)
	if err == nil {
		total := decimal.Zero
		for _, c := range existing {
			total = total.Add(c.Tonnage)
		}
		if excess := hedging.OvercoverageTonnage(sale.Volume, total); excess.IsPositive() {
			warnings = append(warnings,
				"over-coverage: hedge tonnage exceeds sale volume by "+excess.String()+"t")
			if s.Logger != nil {
				s.Logger.Warn("sale over-covered",
					zap.Uint64("sale_id", saleID),
					zap.String("excess_tonnes", excess.String()),
				)
			}
		}
	}
	return item, warnings, nil
}

func (s *CoverageService) RecordPurchaseCoverage(ctx context.Context, vesselID uint64, in RecordCoverageInput) (*models.PurchaseCoverage, []string, error) {
	vessel, err := s.Repo.GetVesselByID(ctx, vesselID)
	if err != nil {
		return nil, nil, err
	}
	if vessel == nil {
		return nil, nil, ErrNotFound
	}
	if !in.FuturesPrice.IsPositive() {
		return nil, nil, ErrInvalidInput
	}

	p := product.Product(vessel.Product)
	tonnage, contracts, err := s.resolveTonnage(p, in)
	if err != nil {
		return nil, nil, err
	}

	tradedAt := in.TradedAt
	if tradedAt.IsZero() {
		tradedAt = nowUTC()
	}
	item := &models.PurchaseCoverage{
		VesselID:     vesselID,
		Product:      vessel.Product,
		Reference:    vessel.Reference,
		Contracts:    contracts,
		Tonnage:      tonnage,
		FuturesPrice: in.FuturesPrice,
		TradedAt:     tradedAt,
	}
	if err := s.Repo.InsertPurchaseCoverage(ctx, item); err != nil {
		return nil, nil, err
	}

	var warnings []string
	existing, err := s.Repo.ListPurchaseCoveragesByVesselID(ctx, vesselID)
	if err == nil {
		total := decimal.Zero
		for _, c := range existing {
			total = total.Add(c.Tonnage)
		}
		if excess := hedging.OvercoverageTonnage(vessel.Quantity, total); excess.IsPositive() {
			warnings = append(warnings,
				"over-coverage: hedge tonnage exceeds vessel quantity by "+excess.String()+"t")
		}
	}
	return item, warnings, nil
}

// ListOrphaned returns coverage detached from its sale by partial resales,
// for the futures administration view.
func (s *CoverageService) ListOrphaned(ctx context.Context, limit, offset int) ([]models.SaleCoverage, error) {
	orphaned := true
	return s.Repo.ListSaleCoverages(ctx, repository.ListCoveragesParams{
		Limit:    limit,
		Offset:   offset,
		Orphaned: &orphaned,
	})
}

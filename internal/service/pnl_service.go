package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"graindesk/internal/models"
	"graindesk/internal/pricing"
	"graindesk/internal/product"
	"graindesk/internal/repository"
)

// PnLService aggregates profit and loss across the book. All views are
// read-only snapshots priced off the latest reference quotes; nothing here
// writes.
type PnLService struct {
	Repo      repository.Repository
	Prices    PriceSource
	Positions *PositionService
	Logger    *zap.Logger
}

// VesselPnL is the profit breakdown for one cargo: physical margin split by
// pricing mode plus the mark-to-market of the hedge legs on both sides.
type VesselPnL struct {
	VesselID     uint64          `json:"vessel_id"`
	Product      string          `json:"product"`
	PurchasePRU  decimal.Decimal `json:"purchase_pru"`
	AvgSalePRU   decimal.Decimal `json:"avg_sale_pru"`
	SoldVolume   decimal.Decimal `json:"sold_volume"`
	UnsoldVolume decimal.Decimal `json:"unsold_volume"`
	PnLPrime     decimal.Decimal `json:"pnl_prime"`
	PnLFlat      decimal.Decimal `json:"pnl_flat"`
	PnLFutures   decimal.Decimal `json:"pnl_futures"`
	PnLTotal     decimal.Decimal `json:"pnl_total"`
}

// ClientPnL is the per-client view: unrealized margin on open sales plus
// gains already realized through settled resales.
type ClientPnL struct {
	ClientID    uint64          `json:"client_id"`
	OpenVolume  decimal.Decimal `json:"open_volume"`
	AvgPRU      decimal.Decimal `json:"avg_pru"`
	PnLPrime    decimal.Decimal `json:"pnl_prime"`
	PnLFlat     decimal.Decimal `json:"pnl_flat"`
	PnLFutures  decimal.Decimal `json:"pnl_futures"`
	PnLRealized decimal.Decimal `json:"pnl_realized"`
	PnLTotal    decimal.Decimal `json:"pnl_total"`
}

// VesselPnL prices every active sale against the vessel's own landed cost.
// A sale whose reference has no quote is skipped rather than failing the
// whole roll-up; the miss is logged.
func (s *PnLService) VesselPnL(ctx context.Context, vesselID uint64) (*VesselPnL, error) {
	vessel, err := s.Repo.GetVesselByID(ctx, vesselID)
	if err != nil {
		return nil, err
	}
	if vessel == nil {
		return nil, ErrNotFound
	}
	purchase, err := s.Positions.vesselPurchasePRU(ctx, vessel)
	if err != nil {
		return nil, err
	}

	out := &VesselPnL{VesselID: vesselID, Product: vessel.Product, PurchasePRU: purchase.PRU}
	status := "active"
	sales, err := s.Repo.ListSales(ctx, repository.ListSalesParams{VesselID: &vesselID, Status: &status})
	if err != nil {
		return nil, err
	}

	var pruSamples []pricing.Weighted
	for i := range sales {
		sale := &sales[i]
		view, err := s.Positions.ComputePRU(ctx, sale.ID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skipping unpriceable sale in vessel pnl",
					zap.Uint64("sale_id", sale.ID), zap.Error(err))
			}
			continue
		}
		margin := view.PRU.Sub(purchase.PRU).Mul(sale.Volume)
		if sale.PricingMode == models.PricingFlat {
			out.PnLFlat = out.PnLFlat.Add(margin)
		} else {
			out.PnLPrime = out.PnLPrime.Add(margin)
		}
		out.SoldVolume = out.SoldVolume.Add(sale.Volume)
		pruSamples = append(pruSamples, pricing.Weighted{Value: view.PRU, Weight: sale.Volume})

		futures, err := s.saleFuturesPnL(ctx, sale.ID, vessel.Product)
		if err != nil {
			return nil, err
		}
		out.PnLFutures = out.PnLFutures.Add(futures)
	}
	out.AvgSalePRU = pricing.WeightedAverage(pruSamples)
	out.UnsoldVolume = vessel.Quantity.Sub(out.SoldVolume)

	purchaseFutures, err := s.purchaseFuturesPnL(ctx, vessel)
	if err != nil {
		return nil, err
	}
	out.PnLFutures = out.PnLFutures.Add(purchaseFutures)
	out.PnLTotal = out.PnLPrime.Add(out.PnLFlat).Add(out.PnLFutures)
	return out, nil
}

// ClientPnL combines the client's open sales, their hedge marks, and the
// realized gains from settled resales net of commission.
func (s *PnLService) ClientPnL(ctx context.Context, clientID uint64) (*ClientPnL, error) {
	client, err := s.Repo.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrNotFound
	}

	out := &ClientPnL{ClientID: clientID}
	status := "active"
	sales, err := s.Repo.ListSales(ctx, repository.ListSalesParams{ClientID: &clientID, Status: &status})
	if err != nil {
		return nil, err
	}

	var pruSamples []pricing.Weighted
	for i := range sales {
		sale := &sales[i]
		vessel, err := s.Repo.GetVesselByID(ctx, sale.VesselID)
		if err != nil {
			return nil, err
		}
		if vessel == nil {
			continue
		}
		view, err := s.Positions.ComputePRU(ctx, sale.ID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skipping unpriceable sale in client pnl",
					zap.Uint64("sale_id", sale.ID), zap.Error(err))
			}
			continue
		}
		purchase, err := s.Positions.vesselPurchasePRU(ctx, vessel)
		if err != nil {
			continue
		}
		margin := view.PRU.Sub(purchase.PRU).Mul(sale.Volume)
		if sale.PricingMode == models.PricingFlat {
			out.PnLFlat = out.PnLFlat.Add(margin)
		} else {
			out.PnLPrime = out.PnLPrime.Add(margin)
		}
		out.OpenVolume = out.OpenVolume.Add(sale.Volume)
		pruSamples = append(pruSamples, pricing.Weighted{Value: view.PRU, Weight: sale.Volume})

		futures, err := s.saleFuturesPnL(ctx, sale.ID, vessel.Product)
		if err != nil {
			return nil, err
		}
		out.PnLFutures = out.PnLFutures.Add(futures)
	}
	out.AvgPRU = pricing.WeightedAverage(pruSamples)

	txns, err := s.Repo.ListTransactions(ctx, repository.ListTransactionsParams{SellerClientID: &clientID})
	if err != nil {
		return nil, err
	}
	for _, txn := range txns {
		out.PnLRealized = out.PnLRealized.Add(txn.SellerGain).Sub(txn.Commission)
	}

	out.PnLTotal = out.PnLPrime.Add(out.PnLFlat).Add(out.PnLFutures).Add(out.PnLRealized)
	return out, nil
}

// saleFuturesPnL marks the short hedge legs of one sale: each coverage sold
// futures at its traded price and buys back at the current quote, so the leg
// earns (traded - current) per tonne, scaled by the product's price factor.
func (s *PnLService) saleFuturesPnL(ctx context.Context, saleID uint64, prod string) (decimal.Decimal, error) {
	coverages, err := s.Repo.ListSaleCoveragesBySaleID(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	factor, err := product.Factor(product.Product(prod))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, c := range coverages {
		quote, err := s.Prices.Get(ctx, c.Reference)
		if err != nil || quote == nil {
			continue
		}
		total = total.Add(c.FuturesPrice.Sub(quote.Price).Mul(c.Tonnage).Mul(factor))
	}
	return total, nil
}

// purchaseFuturesPnL marks the long hedge legs on the purchase side: bought
// at the traded price, valued at the current quote.
func (s *PnLService) purchaseFuturesPnL(ctx context.Context, vessel *models.Vessel) (decimal.Decimal, error) {
	coverages, err := s.Repo.ListPurchaseCoveragesByVesselID(ctx, vessel.ID)
	if err != nil {
		return decimal.Zero, err
	}
	factor, err := product.Factor(product.Product(vessel.Product))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, c := range coverages {
		quote, err := s.Prices.Get(ctx, c.Reference)
		if err != nil || quote == nil {
			continue
		}
		total = total.Add(quote.Price.Sub(c.FuturesPrice).Mul(c.Tonnage).Mul(factor))
	}
	return total, nil
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"graindesk/internal/hedging"
	"graindesk/internal/metrics"
	"graindesk/internal/models"
	"graindesk/internal/notify"
	"graindesk/internal/product"
	"graindesk/internal/repository"
)

// SettlementService takes bids against listed resales and settles exactly
// one accepted bid per listing-volume-unit. AcceptBid is the only
// serializable operation in the system: everything it touches is locked and
// written in a single transaction, and a losing concurrent attempt surfaces
// as ErrStaleState instead of a double settlement.
type SettlementService struct {
	Repo          repository.Repository
	Hub           *notify.Hub
	Logger        *zap.Logger
	CommissionPct decimal.Decimal
}

type PlaceBidInput struct {
	ListingID      uint64
	BidderClientID uint64
	Price          decimal.Decimal
	Volume         decimal.Decimal
}

// PlaceBid records a counter-offer. Open to any client except the listing
// owner while the listing is on the market.
func (s *SettlementService) PlaceBid(ctx context.Context, in PlaceBidInput) (*models.Bid, error) {
	if !in.Price.IsPositive() || !in.Volume.IsPositive() {
		return nil, ErrInvalidInput
	}
	listing, err := s.Repo.GetResaleListingByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrNotFound
	}
	if listing.Status != models.ListingListed {
		return nil, ErrStaleState
	}
	if listing.SellerClientID == in.BidderClientID {
		return nil, ErrOwnListing
	}

	bid := &models.Bid{
		ListingID:      in.ListingID,
		BidderClientID: in.BidderClientID,
		Price:          in.Price,
		Volume:         in.Volume,
		Status:         models.BidActive,
	}
	if err := s.Repo.InsertBid(ctx, bid); err != nil {
		return nil, err
	}
	metrics.BidsTotal.WithLabelValues("placed").Inc()
	return bid, nil
}

// RejectBid is the seller's explicit rejection of a competing bid. Losing
// bids are never auto-rejected by settlement.
func (s *SettlementService) RejectBid(ctx context.Context, bidID uint64) error {
	ok, err := s.Repo.CASBidStatus(ctx, bidID, models.BidActive, models.BidRejected)
	if err != nil {
		return err
	}
	if !ok {
		bid, err := s.Repo.GetBidByID(ctx, bidID)
		if err != nil {
			return err
		}
		if bid == nil {
			return ErrNotFound
		}
		return ErrStaleState
	}
	metrics.BidsTotal.WithLabelValues("rejected").Inc()
	return nil
}

// AcceptBid settles a bid:
//
//	volume   = min(bid.volume, listing.volume)
//	gain     = (bid.price - listing cost basis) * volume
//
// An immutable transaction is written, the underlying sale shrinks by the
// settled volume, and any hedge tonnage left above the reduced sale is
// detached into orphaned coverage records. The listing closes only when
// fully transacted; other active bids stay active.
func (s *SettlementService) AcceptBid(ctx context.Context, bidID uint64) (*models.Transaction, error) {
	start := time.Now()
	var txn *models.Transaction
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		bid, err := s.Repo.GetBidForUpdateTx(ctx, tx, bidID)
		if err != nil {
			return err
		}
		if bid == nil {
			return ErrNotFound
		}
		if bid.Status != models.BidActive {
			return ErrStaleState
		}
		listing, err := s.Repo.GetResaleListingForUpdateTx(ctx, tx, bid.ListingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return ErrNotFound
		}
		if listing.Status != models.ListingListed {
			return ErrStaleState
		}
		sale, err := s.Repo.GetSaleForUpdateTx(ctx, tx, listing.SaleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return ErrNotFound
		}

		volume := bid.Volume
		if listing.Volume.LessThan(volume) {
			volume = listing.Volume
		}
		gain := bid.Price.Sub(listing.CostBasis).Mul(volume)
		commission := decimal.Zero
		if s.CommissionPct.IsPositive() {
			commission = bid.Price.Mul(volume).Mul(s.CommissionPct).Div(decimal.NewFromInt(100))
		}

		txn = &models.Transaction{
			Reference:      uuid.NewString(),
			ListingID:      listing.ID,
			BidID:          bid.ID,
			SaleID:         sale.ID,
			SellerClientID: listing.SellerClientID,
			BuyerClientID:  bid.BidderClientID,
			CostBasis:      listing.CostBasis,
			FinalPrice:     bid.Price,
			Volume:         volume,
			SellerGain:     gain,
			Commission:     commission,
		}
		if err := s.Repo.InsertTransactionTx(ctx, tx, txn); err != nil {
			return err
		}

		ok, err := s.Repo.CASBidStatusTx(ctx, tx, bid.ID, models.BidActive, models.BidAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleState
		}

		newVolume := sale.Volume.Sub(volume)
		if err := s.Repo.UpdateSaleVolumeTx(ctx, tx, sale.ID, newVolume); err != nil {
			return err
		}
		if err := s.orphanExcessCoverage(ctx, tx, sale.ID, newVolume); err != nil {
			return err
		}

		if volume.Cmp(listing.Volume) == 0 {
			ok, err := s.Repo.CASResaleListingStatusTx(ctx, tx, listing.ID,
				models.ListingListed, models.ListingSettled, nil)
			if err != nil {
				return err
			}
			if !ok {
				return ErrStaleState
			}
		} else {
			if err := s.Repo.UpdateResaleListingVolumeTx(ctx, tx, listing.ID, listing.Volume.Sub(volume)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.Inc()
	metrics.BidsTotal.WithLabelValues("accepted").Inc()
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	if orphaned, err := s.Repo.SumOrphanedCoverageTonnage(ctx); err == nil {
		v, _ := orphaned.Float64()
		metrics.OrphanedCoverageTonnes.Set(v)
	}
	if s.Hub != nil {
		s.Hub.Publish(ctx, notify.Event{
			Topic:    notify.TopicSettlement,
			Kind:     "bid_settled",
			EntityID: txn.ID,
			Details: map[string]any{
				"reference":  txn.Reference,
				"listing_id": txn.ListingID,
				"volume":     txn.Volume.String(),
				"gain":       txn.SellerGain.String(),
			},
		})
	}
	if s.Logger != nil {
		s.Logger.Info("bid settled",
			zap.Uint64("bid_id", bidID),
			zap.Uint64("transaction_id", txn.ID),
			zap.String("volume", txn.Volume.String()),
			zap.String("gain", txn.SellerGain.String()),
		)
	}
	return txn, nil
}

// orphanExcessCoverage detaches hedge tonnage above the reduced sale volume
// into sale-less coverage records. Newest coverage detaches first; a record
// larger than the remaining excess is split, with the detached slice rounded
// up to whole contracts. Nothing is ever deleted: the futures positions
// still exist and stay visible to futures administration.
func (s *SettlementService) orphanExcessCoverage(ctx context.Context, tx *gorm.DB, saleID uint64, newVolume decimal.Decimal) error {
	coverages, err := s.Repo.ListSaleCoveragesForUpdateTx(ctx, tx, saleID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, c := range coverages {
		total = total.Add(c.Tonnage)
	}
	excess := hedging.OvercoverageTonnage(newVolume, total)
	if !excess.IsPositive() {
		return nil
	}

	for _, c := range coverages {
		if !excess.IsPositive() {
			break
		}
		detachT, detachC, err := hedging.Split(c.Tonnage, c.Contracts, excess, product.Product(c.Product))
		if err != nil {
			return err
		}
		if !detachT.IsPositive() {
			continue
		}
		if detachT.Cmp(c.Tonnage) == 0 {
			if err := s.Repo.DetachSaleCoverageTx(ctx, tx, c.ID); err != nil {
				return err
			}
		} else {
			keepT := c.Tonnage.Sub(detachT)
			keepC := c.Contracts - detachC
			if err := s.Repo.UpdateSaleCoverageSliceTx(ctx, tx, c.ID, keepT, keepC); err != nil {
				return err
			}
			orphan := &models.SaleCoverage{
				SaleID:       nil,
				Product:      c.Product,
				Reference:    c.Reference,
				Contracts:    detachC,
				Tonnage:      detachT,
				FuturesPrice: c.FuturesPrice,
				TradedAt:     c.TradedAt,
			}
			if err := s.Repo.InsertSaleCoverageTx(ctx, tx, orphan); err != nil {
				return err
			}
		}
		excess = excess.Sub(detachT)
	}
	return nil
}

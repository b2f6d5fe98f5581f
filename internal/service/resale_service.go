package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"graindesk/internal/metrics"
	"graindesk/internal/models"
	"graindesk/internal/notify"
	"graindesk/internal/pricing"
	"graindesk/internal/product"
	"graindesk/internal/repository"
)

// ResaleService drives the listing lifecycle on the secondary market:
// creation against an owned sale position, admin validation, withdrawal.
// Settlement of bids lives in SettlementService.
type ResaleService struct {
	Repo             repository.Repository
	Prices           PriceSource
	Hub              *notify.Hub
	Logger           *zap.Logger
	ValidationWindow time.Duration
}

func (s *ResaleService) window() time.Duration {
	if s.ValidationWindow <= 0 {
		return 30 * time.Minute
	}
	return s.ValidationWindow
}

type CreateListingInput struct {
	SaleID         uint64
	SellerClientID uint64
	Volume         decimal.Decimal
	AskPrice       decimal.Decimal
	PositionType   string
}

// Create submits a listing. The balance check runs against the covered or
// uncovered sub-balance of the sale net of other open listings, inside one
// transaction with the sale locked, so two concurrent listings cannot both
// claim the same tonnage. The sale's cost basis (PRU for prime, flat price
// otherwise) is frozen on the listing for later gain computation.
func (s *ResaleService) Create(ctx context.Context, in CreateListingInput) (*models.ResaleListing, error) {
	if !in.Volume.IsPositive() || !in.AskPrice.IsPositive() {
		return nil, ErrInvalidInput
	}
	if in.PositionType != models.PositionCovered && in.PositionType != models.PositionUncovered {
		return nil, ErrInvalidInput
	}

	var listing *models.ResaleListing
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		sale, err := s.Repo.GetSaleForUpdateTx(ctx, tx, in.SaleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return ErrNotFound
		}
		if sale.ClientID != in.SellerClientID {
			return ErrNotOwner
		}
		vessel, err := s.Repo.GetVesselForUpdateTx(ctx, tx, sale.VesselID)
		if err != nil {
			return err
		}
		if vessel == nil {
			return ErrNotFound
		}

		coverages, err := s.Repo.ListSaleCoveragesForUpdateTx(ctx, tx, in.SaleID)
		if err != nil {
			return err
		}
		covered := decimal.Zero
		for _, c := range coverages {
			covered = covered.Add(c.Tonnage)
		}
		if covered.GreaterThan(sale.Volume) {
			covered = sale.Volume
		}
		balance := covered
		if in.PositionType == models.PositionUncovered {
			balance = sale.Volume.Sub(covered)
		}
		open, err := s.Repo.SumOpenListingVolumeBySaleTx(ctx, tx, in.SaleID, in.PositionType)
		if err != nil {
			return err
		}
		if in.Volume.GreaterThan(balance.Sub(open)) {
			return ErrVolumeExceedsBalance
		}

		costBasis := sale.FlatPrice
		if sale.PricingMode == models.PricingPrime {
			quote, err := s.Prices.Get(ctx, sale.Reference)
			if err != nil {
				return err
			}
			if quote == nil {
				return ErrPriceUnavailable
			}
			pin := pricing.Input{
				Mode:           sale.PricingMode,
				Product:        product.Product(vessel.Product),
				Volume:         sale.Volume,
				Premium:        sale.Premium,
				ReferencePrice: quote.Price,
			}
			for _, c := range coverages {
				pin.Hedges = append(pin.Hedges, pricing.HedgeSlice{Volume: c.Tonnage, Price: c.FuturesPrice})
			}
			res, err := pricing.ComputePRU(pin)
			if err != nil {
				return err
			}
			costBasis = res.PRU
		}

		now := nowUTC()
		listing = &models.ResaleListing{
			SaleID:           in.SaleID,
			SellerClientID:   in.SellerClientID,
			Volume:           in.Volume,
			AskPrice:         in.AskPrice,
			CostBasis:        costBasis,
			PositionType:     in.PositionType,
			Status:           models.ListingPendingValidation,
			ValidationExpiry: now.Add(s.window()),
		}
		return s.Repo.InsertResaleListingTx(ctx, tx, listing)
	})
	if err != nil {
		return nil, err
	}

	metrics.ListingsTotal.WithLabelValues("created").Inc()
	s.publish(ctx, "listing_created", listing.ID, map[string]any{
		"sale_id": listing.SaleID,
		"volume":  listing.Volume.String(),
		"ask":     listing.AskPrice.String(),
	})
	return listing, nil
}

// Approve publishes a pending listing to the market. A lost race (already
// validated, rejected, or withdrawn) is a state conflict, not a no-op.
func (s *ResaleService) Approve(ctx context.Context, listingID uint64) error {
	now := nowUTC()
	ok, err := s.Repo.CASResaleListingStatus(ctx, listingID,
		models.ListingPendingValidation, models.ListingListed, &now)
	if err != nil {
		return err
	}
	if !ok {
		return s.staleOrMissing(ctx, listingID)
	}
	metrics.ListingsTotal.WithLabelValues("listed").Inc()
	s.publish(ctx, "listing_listed", listingID, nil)
	return nil
}

// Reject is terminal; the listed tonnage falls back into the sale's
// available balance simply by no longer counting as an open listing.
func (s *ResaleService) Reject(ctx context.Context, listingID uint64) error {
	ok, err := s.Repo.CASResaleListingStatus(ctx, listingID,
		models.ListingPendingValidation, models.ListingRejected, nil)
	if err != nil {
		return err
	}
	if !ok {
		return s.staleOrMissing(ctx, listingID)
	}
	metrics.ListingsTotal.WithLabelValues("rejected").Inc()
	s.publish(ctx, "listing_rejected", listingID, nil)
	return nil
}

// Withdraw lets the owner pull a listed resale that has no accepted bid.
func (s *ResaleService) Withdraw(ctx context.Context, listingID, clientID uint64) error {
	listing, err := s.Repo.GetResaleListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing == nil {
		return ErrNotFound
	}
	if listing.SellerClientID != clientID {
		return ErrNotOwner
	}
	accepted, err := s.Repo.CountBidsByListingAndStatus(ctx, listingID, models.BidAccepted)
	if err != nil {
		return err
	}
	if accepted > 0 {
		return ErrAcceptedBidExists
	}
	ok, err := s.Repo.CASResaleListingStatus(ctx, listingID,
		models.ListingListed, models.ListingWithdrawn, nil)
	if err != nil {
		return err
	}
	if !ok {
		return s.staleOrMissing(ctx, listingID)
	}
	metrics.ListingsTotal.WithLabelValues("withdrawn").Inc()
	s.publish(ctx, "listing_withdrawn", listingID, nil)
	return nil
}

// ListingView decorates a listing with the advisory expiry flag, computed at
// read time against the validation watermark.
type ListingView struct {
	models.ResaleListing
	Expired bool `json:"expired"`
}

func (s *ResaleService) List(ctx context.Context, params repository.ListListingsParams) ([]ListingView, error) {
	items, err := s.Repo.ListResaleListings(ctx, params)
	if err != nil {
		return nil, err
	}
	now := nowUTC()
	views := make([]ListingView, 0, len(items))
	for _, item := range items {
		views = append(views, ListingView{
			ResaleListing: item,
			Expired:       item.ExpiredPending(now),
		})
	}
	return views, nil
}

func (s *ResaleService) staleOrMissing(ctx context.Context, listingID uint64) error {
	listing, err := s.Repo.GetResaleListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing == nil {
		return ErrNotFound
	}
	return ErrStaleState
}

func (s *ResaleService) publish(ctx context.Context, kind string, listingID uint64, details map[string]any) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(ctx, notify.Event{
		Topic:    notify.TopicResale,
		Kind:     kind,
		EntityID: listingID,
		Details:  details,
	})
}

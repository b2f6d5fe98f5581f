package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"graindesk/internal/hedging"
	"graindesk/internal/metrics"
	"graindesk/internal/models"
	"graindesk/internal/repository"
)

// RollService moves a volume slice of a position onto a new reference
// instrument. The source shrinks and a linked child is created; history is
// never mutated. Both legs happen in one transaction with the source row
// locked, so concurrent rolls against the same position serialize.
type RollService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func validateRoll(volumeToMove, uncovered decimal.Decimal, current, next string) error {
	next = strings.TrimSpace(next)
	if next == "" {
		return hedging.ErrMissingReference
	}
	if next == current {
		return hedging.ErrSameReference
	}
	if !volumeToMove.IsPositive() || volumeToMove.GreaterThan(uncovered) {
		return hedging.ErrInvalidRollVolume
	}
	return nil
}

// RollSale splits volumeToMove tonnes of a sale onto newReference. Only the
// uncovered part of the sale can move; hedged volume stays priced on the
// reference it was hedged against.
func (s *RollService) RollSale(ctx context.Context, saleID uint64, volumeToMove decimal.Decimal, newReference string) (*models.Sale, error) {
	var child *models.Sale
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		sale, err := s.Repo.GetSaleForUpdateTx(ctx, tx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return ErrNotFound
		}
		coverages, err := s.Repo.ListSaleCoveragesForUpdateTx(ctx, tx, saleID)
		if err != nil {
			return err
		}
		covered := decimal.Zero
		for _, c := range coverages {
			covered = covered.Add(c.Tonnage)
		}
		uncovered := sale.Volume.Sub(covered)
		if uncovered.IsNegative() {
			uncovered = decimal.Zero
		}
		if err := validateRoll(volumeToMove, uncovered, sale.Reference, newReference); err != nil {
			return err
		}

		if err := s.Repo.UpdateSaleVolumeTx(ctx, tx, saleID, sale.Volume.Sub(volumeToMove)); err != nil {
			return err
		}
		parentID := sale.ID
		child = &models.Sale{
			VesselID:     sale.VesselID,
			ClientID:     sale.ClientID,
			Volume:       volumeToMove,
			PricingMode:  sale.PricingMode,
			Reference:    strings.TrimSpace(newReference),
			Premium:      sale.Premium,
			FlatPrice:    sale.FlatPrice,
			ParentSaleID: &parentID,
			Status:       "active",
		}
		return s.Repo.InsertSaleTx(ctx, tx, child)
	})
	if err != nil {
		return nil, err
	}
	metrics.RollsTotal.WithLabelValues("sale").Inc()
	if s.Logger != nil {
		s.Logger.Info("sale rolled",
			zap.Uint64("sale_id", saleID),
			zap.Uint64("child_id", child.ID),
			zap.String("volume", volumeToMove.String()),
			zap.String("reference", child.Reference),
		)
	}
	return child, nil
}

// RollVessel is the purchase-side counterpart: a slice of the cargo moves
// onto a new reference as a child vessel.
func (s *RollService) RollVessel(ctx context.Context, vesselID uint64, volumeToMove decimal.Decimal, newReference string) (*models.Vessel, error) {
	var child *models.Vessel
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		vessel, err := s.Repo.GetVesselForUpdateTx(ctx, tx, vesselID)
		if err != nil {
			return err
		}
		if vessel == nil {
			return ErrNotFound
		}
		coverages, err := s.Repo.ListPurchaseCoveragesByVesselID(ctx, vesselID)
		if err != nil {
			return err
		}
		covered := decimal.Zero
		for _, c := range coverages {
			covered = covered.Add(c.Tonnage)
		}
		uncovered := vessel.Quantity.Sub(covered)
		if uncovered.IsNegative() {
			uncovered = decimal.Zero
		}
		if err := validateRoll(volumeToMove, uncovered, vessel.Reference, newReference); err != nil {
			return err
		}

		if err := s.Repo.UpdateVesselQuantityTx(ctx, tx, vesselID, vessel.Quantity.Sub(volumeToMove)); err != nil {
			return err
		}
		parentID := vessel.ID
		child = &models.Vessel{
			Name:           vessel.Name + " (roll)",
			Product:        vessel.Product,
			Quantity:       volumeToMove,
			PricingMode:    vessel.PricingMode,
			Reference:      strings.TrimSpace(newReference),
			Premium:        vessel.Premium,
			FlatPrice:      vessel.FlatPrice,
			Incoterm:       vessel.Incoterm,
			FreightRate:    vessel.FreightRate,
			ParentVesselID: &parentID,
		}
		return s.Repo.InsertVesselTx(ctx, tx, child)
	})
	if err != nil {
		return nil, err
	}
	metrics.RollsTotal.WithLabelValues("vessel").Inc()
	if s.Logger != nil {
		s.Logger.Info("vessel rolled",
			zap.Uint64("vessel_id", vesselID),
			zap.Uint64("child_id", child.ID),
			zap.String("volume", volumeToMove.String()),
			zap.String("reference", child.Reference),
		)
	}
	return child, nil
}

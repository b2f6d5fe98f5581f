package gormrepository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"graindesk/internal/models"
	"graindesk/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Clients ----------------------------------------------------------------

func (s *Store) InsertClient(ctx context.Context, item *models.Client) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetClientByID(ctx context.Context, id uint64) (*models.Client, error) {
	var item models.Client
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListClients(ctx context.Context, params repository.ListClientsParams) ([]models.Client, error) {
	query := s.db.WithContext(ctx).Model(&models.Client{})
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	var items []models.Client
	err := query.Order("id asc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

// --- Vessels ----------------------------------------------------------------

func (s *Store) InsertVessel(ctx context.Context, item *models.Vessel) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) InsertVesselTx(ctx context.Context, tx *gorm.DB, item *models.Vessel) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetVesselByID(ctx context.Context, id uint64) (*models.Vessel, error) {
	var item models.Vessel
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetVesselForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Vessel, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Vessel
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListVessels(ctx context.Context, params repository.ListVesselsParams) ([]models.Vessel, error) {
	query := s.db.WithContext(ctx).Model(&models.Vessel{})
	if params.Product != nil && *params.Product != "" {
		query = query.Where("product = ?", *params.Product)
	}
	var items []models.Vessel
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func (s *Store) UpdateVesselQuantityTx(ctx context.Context, tx *gorm.DB, id uint64, quantity decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Vessel{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (s *Store) SumActiveSaleVolumeByVessel(ctx context.Context, vesselID uint64) (decimal.Decimal, error) {
	return sumActiveSaleVolume(s.db.WithContext(ctx), vesselID)
}

func (s *Store) SumActiveSaleVolumeByVesselTx(ctx context.Context, tx *gorm.DB, vesselID uint64) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, nil
	}
	return sumActiveSaleVolume(tx.WithContext(ctx), vesselID)
}

func sumActiveSaleVolume(db *gorm.DB, vesselID uint64) (decimal.Decimal, error) {
	var raw *string
	err := db.Model(&models.Sale{}).
		Select("SUM(volume)").
		Where("vessel_id = ?", vesselID).
		Where("status = ?", "active").
		Scan(&raw).Error
	if err != nil || raw == nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(*raw)
}

// --- Sales ------------------------------------------------------------------

func (s *Store) InsertSale(ctx context.Context, item *models.Sale) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) InsertSaleTx(ctx context.Context, tx *gorm.DB, item *models.Sale) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSaleByID(ctx context.Context, id uint64) (*models.Sale, error) {
	var item models.Sale
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetSaleForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Sale, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Sale
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSales(ctx context.Context, params repository.ListSalesParams) ([]models.Sale, error) {
	query := s.db.WithContext(ctx).Model(&models.Sale{})
	if params.VesselID != nil {
		query = query.Where("vessel_id = ?", *params.VesselID)
	}
	if params.ClientID != nil {
		query = query.Where("client_id = ?", *params.ClientID)
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	var items []models.Sale
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func (s *Store) UpdateSaleVolumeTx(ctx context.Context, tx *gorm.DB, id uint64, volume decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", id).
		Update("volume", volume).Error
}

// --- Sale coverages ---------------------------------------------------------

func (s *Store) InsertSaleCoverage(ctx context.Context, item *models.SaleCoverage) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) InsertSaleCoverageTx(ctx context.Context, tx *gorm.DB, item *models.SaleCoverage) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSaleCoverages(ctx context.Context, params repository.ListCoveragesParams) ([]models.SaleCoverage, error) {
	query := s.db.WithContext(ctx).Model(&models.SaleCoverage{})
	if params.SaleID != nil {
		query = query.Where("sale_id = ?", *params.SaleID)
	}
	if params.Orphaned != nil {
		if *params.Orphaned {
			query = query.Where("sale_id IS NULL")
		} else {
			query = query.Where("sale_id IS NOT NULL")
		}
	}
	if params.Reference != nil && *params.Reference != "" {
		query = query.Where("reference = ?", *params.Reference)
	}
	var items []models.SaleCoverage
	err := query.Order("traded_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func (s *Store) ListSaleCoveragesBySaleID(ctx context.Context, saleID uint64) ([]models.SaleCoverage, error) {
	var items []models.SaleCoverage
	err := s.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("traded_at asc").
		Find(&items).Error
	return items, err
}

func (s *Store) ListSaleCoveragesForUpdateTx(ctx context.Context, tx *gorm.DB, saleID uint64) ([]models.SaleCoverage, error) {
	if tx == nil {
		return nil, nil
	}
	var items []models.SaleCoverage
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sale_id = ?", saleID).
		Order("traded_at desc").
		Find(&items).Error
	return items, err
}

func (s *Store) UpdateSaleCoverageSliceTx(ctx context.Context, tx *gorm.DB, id uint64, tonnage decimal.Decimal, contracts int64) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.SaleCoverage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tonnage":   tonnage,
			"contracts": contracts,
		}).Error
}

func (s *Store) DetachSaleCoverageTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.SaleCoverage{}).
		Where("id = ?", id).
		Update("sale_id", nil).Error
}

func (s *Store) SumOrphanedCoverageTonnage(ctx context.Context) (decimal.Decimal, error) {
	var raw *string
	err := s.db.WithContext(ctx).
		Model(&models.SaleCoverage{}).
		Select("SUM(tonnage)").
		Where("sale_id IS NULL").
		Scan(&raw).Error
	if err != nil || raw == nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(*raw)
}

// --- Purchase coverages -----------------------------------------------------

func (s *Store) InsertPurchaseCoverage(ctx context.Context, item *models.PurchaseCoverage) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPurchaseCoveragesByVesselID(ctx context.Context, vesselID uint64) ([]models.PurchaseCoverage, error) {
	var items []models.PurchaseCoverage
	err := s.db.WithContext(ctx).
		Where("vessel_id = ?", vesselID).
		Order("traded_at asc").
		Find(&items).Error
	return items, err
}

// --- Resale listings --------------------------------------------------------

func (s *Store) InsertResaleListingTx(ctx context.Context, tx *gorm.DB, item *models.ResaleListing) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetResaleListingByID(ctx context.Context, id uint64) (*models.ResaleListing, error) {
	var item models.ResaleListing
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetResaleListingForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.ResaleListing, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.ResaleListing
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListResaleListings(ctx context.Context, params repository.ListListingsParams) ([]models.ResaleListing, error) {
	query := s.db.WithContext(ctx).Model(&models.ResaleListing{})
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SaleID != nil {
		query = query.Where("sale_id = ?", *params.SaleID)
	}
	if params.SellerClientID != nil {
		query = query.Where("seller_client_id = ?", *params.SellerClientID)
	}
	if params.ExcludeClientID != nil {
		query = query.Where("seller_client_id <> ?", *params.ExcludeClientID)
	}
	var items []models.ResaleListing
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func (s *Store) SumOpenListingVolumeBySaleTx(ctx context.Context, tx *gorm.DB, saleID uint64, positionType string) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, nil
	}
	var raw *string
	err := tx.WithContext(ctx).
		Model(&models.ResaleListing{}).
		Select("SUM(volume)").
		Where("sale_id = ?", saleID).
		Where("position_type = ?", positionType).
		Where("status IN ?", []string{models.ListingPendingValidation, models.ListingListed}).
		Scan(&raw).Error
	if err != nil || raw == nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(*raw)
}

func (s *Store) CASResaleListingStatus(ctx context.Context, id uint64, from, to string, validatedAt *time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	return casListingStatus(s.db.WithContext(ctx), id, from, to, validatedAt)
}

func (s *Store) CASResaleListingStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, validatedAt *time.Time) (bool, error) {
	if tx == nil {
		return false, nil
	}
	return casListingStatus(tx.WithContext(ctx), id, from, to, validatedAt)
}

func casListingStatus(db *gorm.DB, id uint64, from, to string, validatedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if validatedAt != nil {
		updates["validated_at"] = *validatedAt
	}
	res := db.Model(&models.ResaleListing{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) UpdateResaleListingVolumeTx(ctx context.Context, tx *gorm.DB, id uint64, volume decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.ResaleListing{}).
		Where("id = ?", id).
		Update("volume", volume).Error
}

// --- Bids -------------------------------------------------------------------

func (s *Store) InsertBid(ctx context.Context, item *models.Bid) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	var item models.Bid
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetBidForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Bid, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Bid
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	query := s.db.WithContext(ctx).Model(&models.Bid{})
	if params.ListingID != nil {
		query = query.Where("listing_id = ?", *params.ListingID)
	}
	if params.BidderClientID != nil {
		query = query.Where("bidder_client_id = ?", *params.BidderClientID)
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	var items []models.Bid
	err := query.Order("price desc, created_at asc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func (s *Store) CASBidStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	return casBidStatus(s.db.WithContext(ctx), id, from, to)
}

func (s *Store) CASBidStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string) (bool, error) {
	if tx == nil {
		return false, nil
	}
	return casBidStatus(tx.WithContext(ctx), id, from, to)
}

func casBidStatus(db *gorm.DB, id uint64, from, to string) (bool, error) {
	res := db.Model(&models.Bid{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) CountBidsByListingAndStatus(ctx context.Context, listingID uint64, status string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("listing_id = ?", listingID).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// --- Transactions -----------------------------------------------------------

func (s *Store) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error) {
	var item models.Transaction
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})
	if params.SellerClientID != nil {
		query = query.Where("seller_client_id = ?", *params.SellerClientID)
	}
	if params.BuyerClientID != nil {
		query = query.Where("buyer_client_id = ?", *params.BuyerClientID)
	}
	if params.ListingID != nil {
		query = query.Where("listing_id = ?", *params.ListingID)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.PnLPaid != nil {
		query = query.Where("pnl_paid = ?", *params.PnLPaid)
	}
	var items []models.Transaction
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func (s *Store) MarkTransactionPnLPaid(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("pnl_paid", true).Error
}

// --- Reference prices -------------------------------------------------------

func (s *Store) UpsertReferencePrice(ctx context.Context, item *models.ReferencePrice) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "reference"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price",
			"source",
			"quoted_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetReferencePrice(ctx context.Context, reference string) (*models.ReferencePrice, error) {
	var item models.ReferencePrice
	err := s.db.WithContext(ctx).First(&item, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListReferencePrices(ctx context.Context) ([]models.ReferencePrice, error) {
	var items []models.ReferencePrice
	err := s.db.WithContext(ctx).
		Model(&models.ReferencePrice{}).
		Order("reference asc").
		Find(&items).Error
	return items, err
}

// --- Sync state -------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	var item models.SyncState
	err := s.db.WithContext(ctx).First(&item, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(state).Error
}

// --- Notifications ----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if params.Topic != nil && *params.Topic != "" {
		query = query.Where("topic = ?", *params.Topic)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	var items []models.Notification
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	return items, err
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 2000 {
		return 2000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"graindesk/internal/models"
)

// Repository is the storage surface of the engine. Tx-suffixed methods take
// part in a transaction opened with InTx; the lock variants take a FOR UPDATE
// row lock so read-modify-write paths (roll, resale creation, settlement)
// serialize on the rows they touch.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Clients
	InsertClient(ctx context.Context, item *models.Client) error
	GetClientByID(ctx context.Context, id uint64) (*models.Client, error)
	ListClients(ctx context.Context, params ListClientsParams) ([]models.Client, error)

	// Vessels
	InsertVessel(ctx context.Context, item *models.Vessel) error
	GetVesselByID(ctx context.Context, id uint64) (*models.Vessel, error)
	GetVesselForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Vessel, error)
	ListVessels(ctx context.Context, params ListVesselsParams) ([]models.Vessel, error)
	InsertVesselTx(ctx context.Context, tx *gorm.DB, item *models.Vessel) error
	UpdateVesselQuantityTx(ctx context.Context, tx *gorm.DB, id uint64, quantity decimal.Decimal) error
	SumActiveSaleVolumeByVessel(ctx context.Context, vesselID uint64) (decimal.Decimal, error)
	SumActiveSaleVolumeByVesselTx(ctx context.Context, tx *gorm.DB, vesselID uint64) (decimal.Decimal, error)

	// Sales
	InsertSale(ctx context.Context, item *models.Sale) error
	GetSaleByID(ctx context.Context, id uint64) (*models.Sale, error)
	GetSaleForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Sale, error)
	ListSales(ctx context.Context, params ListSalesParams) ([]models.Sale, error)
	InsertSaleTx(ctx context.Context, tx *gorm.DB, item *models.Sale) error
	UpdateSaleVolumeTx(ctx context.Context, tx *gorm.DB, id uint64, volume decimal.Decimal) error

	// Sale coverages
	InsertSaleCoverage(ctx context.Context, item *models.SaleCoverage) error
	ListSaleCoverages(ctx context.Context, params ListCoveragesParams) ([]models.SaleCoverage, error)
	ListSaleCoveragesBySaleID(ctx context.Context, saleID uint64) ([]models.SaleCoverage, error)
	ListSaleCoveragesForUpdateTx(ctx context.Context, tx *gorm.DB, saleID uint64) ([]models.SaleCoverage, error)
	InsertSaleCoverageTx(ctx context.Context, tx *gorm.DB, item *models.SaleCoverage) error
	UpdateSaleCoverageSliceTx(ctx context.Context, tx *gorm.DB, id uint64, tonnage decimal.Decimal, contracts int64) error
	DetachSaleCoverageTx(ctx context.Context, tx *gorm.DB, id uint64) error
	SumOrphanedCoverageTonnage(ctx context.Context) (decimal.Decimal, error)

	// Purchase coverages
	InsertPurchaseCoverage(ctx context.Context, item *models.PurchaseCoverage) error
	ListPurchaseCoveragesByVesselID(ctx context.Context, vesselID uint64) ([]models.PurchaseCoverage, error)

	// Resale listings
	InsertResaleListingTx(ctx context.Context, tx *gorm.DB, item *models.ResaleListing) error
	GetResaleListingByID(ctx context.Context, id uint64) (*models.ResaleListing, error)
	GetResaleListingForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.ResaleListing, error)
	ListResaleListings(ctx context.Context, params ListListingsParams) ([]models.ResaleListing, error)
	SumOpenListingVolumeBySaleTx(ctx context.Context, tx *gorm.DB, saleID uint64, positionType string) (decimal.Decimal, error)
	CASResaleListingStatus(ctx context.Context, id uint64, from, to string, validatedAt *time.Time) (bool, error)
	CASResaleListingStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, validatedAt *time.Time) (bool, error)
	UpdateResaleListingVolumeTx(ctx context.Context, tx *gorm.DB, id uint64, volume decimal.Decimal) error

	// Bids
	InsertBid(ctx context.Context, item *models.Bid) error
	GetBidByID(ctx context.Context, id uint64) (*models.Bid, error)
	GetBidForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Bid, error)
	ListBids(ctx context.Context, params ListBidsParams) ([]models.Bid, error)
	CASBidStatus(ctx context.Context, id uint64, from, to string) (bool, error)
	CASBidStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string) (bool, error)
	CountBidsByListingAndStatus(ctx context.Context, listingID uint64, status string) (int64, error)

	// Transactions
	InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error
	GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]models.Transaction, error)
	MarkTransactionPnLPaid(ctx context.Context, id uint64) error

	// Reference prices
	UpsertReferencePrice(ctx context.Context, item *models.ReferencePrice) error
	GetReferencePrice(ctx context.Context, reference string) (*models.ReferencePrice, error)
	ListReferencePrices(ctx context.Context) ([]models.ReferencePrice, error)

	// Price-feed sync state
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error

	// Notifications
	InsertNotification(ctx context.Context, item *models.Notification) error
	ListNotifications(ctx context.Context, params ListNotificationsParams) ([]models.Notification, error)
}

type ListClientsParams struct {
	Limit  int
	Offset int
	Active *bool
}

type ListVesselsParams struct {
	Limit   int
	Offset  int
	Product *string
}

type ListSalesParams struct {
	Limit    int
	Offset   int
	VesselID *uint64
	ClientID *uint64
	Status   *string
}

type ListCoveragesParams struct {
	Limit     int
	Offset    int
	SaleID    *uint64
	Orphaned  *bool
	Reference *string
}

type ListListingsParams struct {
	Limit           int
	Offset          int
	Status          *string
	SaleID          *uint64
	SellerClientID  *uint64
	ExcludeClientID *uint64
}

type ListBidsParams struct {
	Limit          int
	Offset         int
	ListingID      *uint64
	BidderClientID *uint64
	Status         *string
}

type ListTransactionsParams struct {
	Limit          int
	Offset         int
	SellerClientID *uint64
	BuyerClientID  *uint64
	ListingID      *uint64
	Since          *time.Time
	PnLPaid        *bool
}

type ListNotificationsParams struct {
	Limit  int
	Offset int
	Topic  *string
	Since  *time.Time
}

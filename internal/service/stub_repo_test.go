package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"graindesk/internal/models"
	"graindesk/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Transactions collapse to a direct call of fn(nil); the CAS methods keep
// their compare-and-swap semantics so state-machine races stay testable.
type stubRepo struct {
	clients      map[uint64]*models.Client
	vessels      map[uint64]*models.Vessel
	sales        map[uint64]*models.Sale
	coverages    map[uint64]*models.SaleCoverage
	purchases    map[uint64]*models.PurchaseCoverage
	listings     map[uint64]*models.ResaleListing
	bids         map[uint64]*models.Bid
	transactions map[uint64]*models.Transaction
	prices       map[string]*models.ReferencePrice
	syncStates   map[string]*models.SyncState
	notes        []models.Notification
	nextID       uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		clients:      map[uint64]*models.Client{},
		vessels:      map[uint64]*models.Vessel{},
		sales:        map[uint64]*models.Sale{},
		coverages:    map[uint64]*models.SaleCoverage{},
		purchases:    map[uint64]*models.PurchaseCoverage{},
		listings:     map[uint64]*models.ResaleListing{},
		bids:         map[uint64]*models.Bid{},
		transactions: map[uint64]*models.Transaction{},
		prices:       map[string]*models.ReferencePrice{},
		syncStates:   map[string]*models.SyncState{},
	}
}

func (s *stubRepo) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

// Clients

func (s *stubRepo) InsertClient(ctx context.Context, item *models.Client) error {
	item.ID = s.id()
	s.clients[item.ID] = item
	return nil
}

func (s *stubRepo) GetClientByID(ctx context.Context, id uint64) (*models.Client, error) {
	if c, ok := s.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListClients(ctx context.Context, params repository.ListClientsParams) ([]models.Client, error) {
	var out []models.Client
	for _, c := range s.clients {
		if params.Active != nil && c.Active != *params.Active {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

// Vessels

func (s *stubRepo) InsertVessel(ctx context.Context, item *models.Vessel) error {
	item.ID = s.id()
	s.vessels[item.ID] = item
	return nil
}

func (s *stubRepo) GetVesselByID(ctx context.Context, id uint64) (*models.Vessel, error) {
	if v, ok := s.vessels[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetVesselForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Vessel, error) {
	return s.GetVesselByID(ctx, id)
}

func (s *stubRepo) ListVessels(ctx context.Context, params repository.ListVesselsParams) ([]models.Vessel, error) {
	var out []models.Vessel
	for _, v := range s.vessels {
		if params.Product != nil && v.Product != *params.Product {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *stubRepo) InsertVesselTx(ctx context.Context, tx *gorm.DB, item *models.Vessel) error {
	return s.InsertVessel(ctx, item)
}

func (s *stubRepo) UpdateVesselQuantityTx(ctx context.Context, tx *gorm.DB, id uint64, quantity decimal.Decimal) error {
	if v, ok := s.vessels[id]; ok {
		v.Quantity = quantity
	}
	return nil
}

func (s *stubRepo) SumActiveSaleVolumeByVessel(ctx context.Context, vesselID uint64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, sale := range s.sales {
		if sale.VesselID == vesselID && sale.Status == "active" {
			total = total.Add(sale.Volume)
		}
	}
	return total, nil
}

func (s *stubRepo) SumActiveSaleVolumeByVesselTx(ctx context.Context, tx *gorm.DB, vesselID uint64) (decimal.Decimal, error) {
	return s.SumActiveSaleVolumeByVessel(ctx, vesselID)
}

// Sales

func (s *stubRepo) InsertSale(ctx context.Context, item *models.Sale) error {
	item.ID = s.id()
	s.sales[item.ID] = item
	return nil
}

func (s *stubRepo) GetSaleByID(ctx context.Context, id uint64) (*models.Sale, error) {
	if sale, ok := s.sales[id]; ok {
		cp := *sale
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetSaleForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Sale, error) {
	return s.GetSaleByID(ctx, id)
}

func (s *stubRepo) ListSales(ctx context.Context, params repository.ListSalesParams) ([]models.Sale, error) {
	var out []models.Sale
	for _, sale := range s.sales {
		if params.VesselID != nil && sale.VesselID != *params.VesselID {
			continue
		}
		if params.ClientID != nil && sale.ClientID != *params.ClientID {
			continue
		}
		if params.Status != nil && sale.Status != *params.Status {
			continue
		}
		out = append(out, *sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) InsertSaleTx(ctx context.Context, tx *gorm.DB, item *models.Sale) error {
	return s.InsertSale(ctx, item)
}

func (s *stubRepo) UpdateSaleVolumeTx(ctx context.Context, tx *gorm.DB, id uint64, volume decimal.Decimal) error {
	if sale, ok := s.sales[id]; ok {
		sale.Volume = volume
	}
	return nil
}

// Sale coverages

func (s *stubRepo) InsertSaleCoverage(ctx context.Context, item *models.SaleCoverage) error {
	item.ID = s.id()
	s.coverages[item.ID] = item
	return nil
}

func (s *stubRepo) ListSaleCoverages(ctx context.Context, params repository.ListCoveragesParams) ([]models.SaleCoverage, error) {
	var out []models.SaleCoverage
	for _, c := range s.coverages {
		if params.SaleID != nil && (c.SaleID == nil || *c.SaleID != *params.SaleID) {
			continue
		}
		if params.Orphaned != nil && c.Orphaned() != *params.Orphaned {
			continue
		}
		if params.Reference != nil && c.Reference != *params.Reference {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ListSaleCoveragesBySaleID(ctx context.Context, saleID uint64) ([]models.SaleCoverage, error) {
	var out []models.SaleCoverage
	for _, c := range s.coverages {
		if c.SaleID != nil && *c.SaleID == saleID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradedAt.Before(out[j].TradedAt) })
	return out, nil
}

func (s *stubRepo) ListSaleCoveragesForUpdateTx(ctx context.Context, tx *gorm.DB, saleID uint64) ([]models.SaleCoverage, error) {
	items, err := s.ListSaleCoveragesBySaleID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	// newest first, as the store's lock variant orders it
	sort.Slice(items, func(i, j int) bool { return items[i].TradedAt.After(items[j].TradedAt) })
	return items, nil
}

func (s *stubRepo) InsertSaleCoverageTx(ctx context.Context, tx *gorm.DB, item *models.SaleCoverage) error {
	return s.InsertSaleCoverage(ctx, item)
}

func (s *stubRepo) UpdateSaleCoverageSliceTx(ctx context.Context, tx *gorm.DB, id uint64, tonnage decimal.Decimal, contracts int64) error {
	if c, ok := s.coverages[id]; ok {
		c.Tonnage = tonnage
		c.Contracts = contracts
	}
	return nil
}

func (s *stubRepo) DetachSaleCoverageTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	if c, ok := s.coverages[id]; ok {
		c.SaleID = nil
	}
	return nil
}

func (s *stubRepo) SumOrphanedCoverageTonnage(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range s.coverages {
		if c.SaleID == nil {
			total = total.Add(c.Tonnage)
		}
	}
	return total, nil
}

// Purchase coverages

func (s *stubRepo) InsertPurchaseCoverage(ctx context.Context, item *models.PurchaseCoverage) error {
	item.ID = s.id()
	s.purchases[item.ID] = item
	return nil
}

func (s *stubRepo) ListPurchaseCoveragesByVesselID(ctx context.Context, vesselID uint64) ([]models.PurchaseCoverage, error) {
	var out []models.PurchaseCoverage
	for _, c := range s.purchases {
		if c.VesselID == vesselID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Resale listings

func (s *stubRepo) InsertResaleListingTx(ctx context.Context, tx *gorm.DB, item *models.ResaleListing) error {
	item.ID = s.id()
	s.listings[item.ID] = item
	return nil
}

func (s *stubRepo) GetResaleListingByID(ctx context.Context, id uint64) (*models.ResaleListing, error) {
	if l, ok := s.listings[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetResaleListingForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.ResaleListing, error) {
	return s.GetResaleListingByID(ctx, id)
}

func (s *stubRepo) ListResaleListings(ctx context.Context, params repository.ListListingsParams) ([]models.ResaleListing, error) {
	var out []models.ResaleListing
	for _, l := range s.listings {
		if params.Status != nil && l.Status != *params.Status {
			continue
		}
		if params.SaleID != nil && l.SaleID != *params.SaleID {
			continue
		}
		if params.SellerClientID != nil && l.SellerClientID != *params.SellerClientID {
			continue
		}
		if params.ExcludeClientID != nil && l.SellerClientID == *params.ExcludeClientID {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) SumOpenListingVolumeBySaleTx(ctx context.Context, tx *gorm.DB, saleID uint64, positionType string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range s.listings {
		if l.SaleID != saleID || l.PositionType != positionType {
			continue
		}
		if l.Status == models.ListingPendingValidation || l.Status == models.ListingListed {
			total = total.Add(l.Volume)
		}
	}
	return total, nil
}

func (s *stubRepo) CASResaleListingStatus(ctx context.Context, id uint64, from, to string, validatedAt *time.Time) (bool, error) {
	l, ok := s.listings[id]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	if validatedAt != nil {
		l.ValidatedAt = validatedAt
	}
	return true, nil
}

func (s *stubRepo) CASResaleListingStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, validatedAt *time.Time) (bool, error) {
	return s.CASResaleListingStatus(ctx, id, from, to, validatedAt)
}

func (s *stubRepo) UpdateResaleListingVolumeTx(ctx context.Context, tx *gorm.DB, id uint64, volume decimal.Decimal) error {
	if l, ok := s.listings[id]; ok {
		l.Volume = volume
	}
	return nil
}

// Bids

func (s *stubRepo) InsertBid(ctx context.Context, item *models.Bid) error {
	item.ID = s.id()
	s.bids[item.ID] = item
	return nil
}

func (s *stubRepo) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	if b, ok := s.bids[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetBidForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Bid, error) {
	return s.GetBidByID(ctx, id)
}

func (s *stubRepo) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range s.bids {
		if params.ListingID != nil && b.ListingID != *params.ListingID {
			continue
		}
		if params.BidderClientID != nil && b.BidderClientID != *params.BidderClientID {
			continue
		}
		if params.Status != nil && b.Status != *params.Status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CASBidStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	b, ok := s.bids[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (s *stubRepo) CASBidStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string) (bool, error) {
	return s.CASBidStatus(ctx, id, from, to)
}

func (s *stubRepo) CountBidsByListingAndStatus(ctx context.Context, listingID uint64, status string) (int64, error) {
	var n int64
	for _, b := range s.bids {
		if b.ListingID == listingID && b.Status == status {
			n++
		}
	}
	return n, nil
}

// Transactions

func (s *stubRepo) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error {
	item.ID = s.id()
	s.transactions[item.ID] = item
	return nil
}

func (s *stubRepo) GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error) {
	if t, ok := s.transactions[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range s.transactions {
		if params.SellerClientID != nil && t.SellerClientID != *params.SellerClientID {
			continue
		}
		if params.BuyerClientID != nil && t.BuyerClientID != *params.BuyerClientID {
			continue
		}
		if params.ListingID != nil && t.ListingID != *params.ListingID {
			continue
		}
		if params.PnLPaid != nil && t.PnLPaid != *params.PnLPaid {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) MarkTransactionPnLPaid(ctx context.Context, id uint64) error {
	if t, ok := s.transactions[id]; ok {
		t.PnLPaid = true
	}
	return nil
}

// Reference prices

func (s *stubRepo) UpsertReferencePrice(ctx context.Context, item *models.ReferencePrice) error {
	cp := *item
	s.prices[item.Reference] = &cp
	return nil
}

func (s *stubRepo) GetReferencePrice(ctx context.Context, reference string) (*models.ReferencePrice, error) {
	if p, ok := s.prices[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListReferencePrices(ctx context.Context) ([]models.ReferencePrice, error) {
	var out []models.ReferencePrice
	for _, p := range s.prices {
		out = append(out, *p)
	}
	return out, nil
}

// Sync state

func (s *stubRepo) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if st, ok := s.syncStates[scope]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	cp := *state
	s.syncStates[state.Scope] = &cp
	return nil
}

// Notifications

func (s *stubRepo) InsertNotification(ctx context.Context, item *models.Notification) error {
	item.ID = s.id()
	s.notes = append(s.notes, *item)
	return nil
}

func (s *stubRepo) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.notes {
		if params.Topic != nil && n.Topic != *params.Topic {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"graindesk/internal/models"
	"graindesk/internal/product"
)

func newSettlementService(repo *stubRepo) *SettlementService {
	return &SettlementService{Repo: repo}
}

func listedListing(t *testing.T, repo *stubRepo, svc *ResaleService, saleID uint64, volume, ask, positionType string) *models.ResaleListing {
	t.Helper()
	listing, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         saleID,
		SellerClientID: 1,
		Volume:         d(volume),
		AskPrice:       d(ask),
		PositionType:   positionType,
	})
	if err != nil {
		t.Fatalf("create listing err=%v", err)
	}
	if err := svc.Approve(context.Background(), listing.ID); err != nil {
		t.Fatalf("approve err=%v", err)
	}
	out, _ := repo.GetResaleListingByID(context.Background(), listing.ID)
	return out
}

func TestPlaceBid_OwnListingForbidden(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "500", "190", models.PositionUncovered)

	_, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 1,
		Price:          d("185"),
		Volume:         d("500"),
	})
	if !errors.Is(err, ErrOwnListing) {
		t.Fatalf("err=%v want ErrOwnListing", err)
	}
}

func TestAcceptBid_FullSettlement(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "500", "190", models.PositionUncovered)

	bid, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 2,
		Price:          d("195"),
		Volume:         d("500"),
	})
	if err != nil {
		t.Fatalf("place err=%v", err)
	}

	txn, err := svc.AcceptBid(context.Background(), bid.ID)
	if err != nil {
		t.Fatalf("accept err=%v", err)
	}
	if txn.Volume.Cmp(d("500")) != 0 {
		t.Fatalf("volume=%s want=500", txn.Volume)
	}
	wantGain := d("195").Sub(listing.CostBasis).Mul(d("500"))
	if txn.SellerGain.Cmp(wantGain) != 0 {
		t.Fatalf("gain=%s want=%s", txn.SellerGain, wantGain)
	}
	if txn.Reference == "" {
		t.Fatalf("transaction reference empty")
	}

	stored, _ := repo.GetResaleListingByID(context.Background(), listing.ID)
	if stored.Status != models.ListingSettled {
		t.Fatalf("listing status=%s want=settled", stored.Status)
	}
	storedBid, _ := repo.GetBidByID(context.Background(), bid.ID)
	if storedBid.Status != models.BidAccepted {
		t.Fatalf("bid status=%s want=accepted", storedBid.Status)
	}
	storedSale, _ := repo.GetSaleByID(context.Background(), sale.ID)
	if storedSale.Volume.Cmp(d("500")) != 0 {
		t.Fatalf("sale volume=%s want=500", storedSale.Volume)
	}
}

func TestAcceptBid_PartialLeavesListingOpen(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "500", "190", models.PositionUncovered)

	bid, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 2,
		Price:          d("195"),
		Volume:         d("200"),
	})
	if err != nil {
		t.Fatalf("place err=%v", err)
	}
	txn, err := svc.AcceptBid(context.Background(), bid.ID)
	if err != nil {
		t.Fatalf("accept err=%v", err)
	}
	if txn.Volume.Cmp(d("200")) != 0 {
		t.Fatalf("volume=%s want=200", txn.Volume)
	}
	stored, _ := repo.GetResaleListingByID(context.Background(), listing.ID)
	if stored.Status != models.ListingListed {
		t.Fatalf("listing status=%s want still listed", stored.Status)
	}
	if stored.Volume.Cmp(d("300")) != 0 {
		t.Fatalf("listing volume=%s want=300", stored.Volume)
	}
}

func TestAcceptBid_DoubleAcceptConflicts(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "500", "190", models.PositionUncovered)

	bid, _ := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 2,
		Price:          d("195"),
		Volume:         d("500"),
	})
	if _, err := svc.AcceptBid(context.Background(), bid.ID); err != nil {
		t.Fatalf("accept err=%v", err)
	}
	if _, err := svc.AcceptBid(context.Background(), bid.ID); !errors.Is(err, ErrStaleState) {
		t.Fatalf("err=%v want ErrStaleState", err)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("transactions=%d want exactly one", len(repo.transactions))
	}
}

func TestAcceptBid_CompetingBidsStayActive(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "500", "190", models.PositionUncovered)

	winner, _ := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID: listing.ID, BidderClientID: 2, Price: d("195"), Volume: d("200"),
	})
	loser, _ := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID: listing.ID, BidderClientID: 3, Price: d("192"), Volume: d("300"),
	})
	if _, err := svc.AcceptBid(context.Background(), winner.ID); err != nil {
		t.Fatalf("accept err=%v", err)
	}
	stored, _ := repo.GetBidByID(context.Background(), loser.ID)
	if stored.Status != models.BidActive {
		t.Fatalf("loser status=%s want still active", stored.Status)
	}
	if err := svc.RejectBid(context.Background(), loser.ID); err != nil {
		t.Fatalf("reject err=%v", err)
	}
	stored, _ = repo.GetBidByID(context.Background(), loser.ID)
	if stored.Status != models.BidRejected {
		t.Fatalf("loser status=%s want=rejected", stored.Status)
	}
}

func TestAcceptBid_OrphansExcessCoverage(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "3000", "20")

	base := time.Now().UTC()
	older := seedCoverage(repo, sale.ID, "1905.0885", "430", 15, base.Add(-2*time.Hour))
	newer := seedCoverage(repo, sale.ID, "1016.0472", "432", 8, base.Add(-time.Hour))

	listing := listedListing(t, repo, resales, sale.ID, "78.8645", "190", models.PositionCovered)
	bid, _ := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 2,
		Price:          d("195"),
		Volume:         d("78.8645"),
	})
	if _, err := svc.AcceptBid(context.Background(), bid.ID); err != nil {
		t.Fatalf("accept err=%v", err)
	}

	// sale shrank to 2921.1355, total coverage is 2921.1357: the 0.0002t
	// excess detaches one whole contract from the newest record.
	size := decimal.RequireFromString("127.0059")
	newerStored := repo.coverages[newer.ID]
	if newerStored.Contracts != 7 {
		t.Fatalf("newer contracts=%d want=7", newerStored.Contracts)
	}
	if newerStored.Tonnage.Cmp(size.Mul(decimal.NewFromInt(7))) != 0 {
		t.Fatalf("newer tonnage=%s want 7 contracts", newerStored.Tonnage)
	}

	olderStored := repo.coverages[older.ID]
	if olderStored.Contracts != 15 || olderStored.SaleID == nil {
		t.Fatalf("older record must stay attached and whole")
	}

	orphans, err := (&CoverageService{Repo: repo}).ListOrphaned(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(orphans) != 1 {
		t.Fatalf("orphans=%d want=1", len(orphans))
	}
	if orphans[0].Contracts != 1 || orphans[0].Tonnage.Cmp(size) != 0 {
		t.Fatalf("orphan=%+v want one whole contract", orphans[0])
	}
	if orphans[0].SaleID != nil {
		t.Fatalf("orphan still attached")
	}
}

func TestAcceptBid_VolumeClampedToListing(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := newSettlementService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "300", "190", models.PositionUncovered)

	bid, _ := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 2,
		Price:          d("195"),
		Volume:         d("450"),
	})
	txn, err := svc.AcceptBid(context.Background(), bid.ID)
	if err != nil {
		t.Fatalf("accept err=%v", err)
	}
	if txn.Volume.Cmp(d("300")) != 0 {
		t.Fatalf("volume=%s want clamped to 300", txn.Volume)
	}
	stored, _ := repo.GetResaleListingByID(context.Background(), listing.ID)
	if stored.Status != models.ListingSettled {
		t.Fatalf("listing status=%s want=settled", stored.Status)
	}
}

func TestAcceptBid_CommissionApplied(t *testing.T) {
	repo := newStubRepo()
	resales := newResaleService(repo)
	svc := &SettlementService{Repo: repo, CommissionPct: d("1")}
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	listing := listedListing(t, repo, resales, sale.ID, "500", "190", models.PositionUncovered)

	bid, _ := svc.PlaceBid(context.Background(), PlaceBidInput{
		ListingID:      listing.ID,
		BidderClientID: 2,
		Price:          d("200"),
		Volume:         d("500"),
	})
	txn, err := svc.AcceptBid(context.Background(), bid.ID)
	if err != nil {
		t.Fatalf("accept err=%v", err)
	}
	// 1% of 200 * 500
	if txn.Commission.Cmp(d("1000")) != 0 {
		t.Fatalf("commission=%s want=1000", txn.Commission)
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"graindesk/internal/models"
	"graindesk/internal/product"
	"graindesk/internal/repository"
)

func listParamsForSale(saleID uint64) repository.ListListingsParams {
	return repository.ListListingsParams{SaleID: &saleID}
}

func newResaleService(repo *stubRepo) *ResaleService {
	return &ResaleService{
		Repo:             repo,
		Prices:           RepoPrices{Repo: repo},
		ValidationWindow: 30 * time.Minute,
	}
}

func TestResaleCreate_FreezesCostBasis(t *testing.T) {
	repo := newStubRepo()
	svc := newResaleService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	seedCoverage(repo, sale.ID, "600", "430", 0, time.Now().UTC())

	listing, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("500"),
		AskPrice:       d("190"),
		PositionType:   models.PositionCovered,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if listing.Status != models.ListingPendingValidation {
		t.Fatalf("status=%s want=pending_validation", listing.Status)
	}
	// PRU at creation: blended 438 + 20 premium, corn factor.
	want := d("458").Mul(d("0.3937"))
	if listing.CostBasis.Cmp(want) != 0 {
		t.Fatalf("cost basis=%s want=%s", listing.CostBasis, want)
	}

	// a later price move must not change the frozen basis
	seedPrice(repo, "ZCZ6", "480")
	stored, _ := repo.GetResaleListingByID(context.Background(), listing.ID)
	if stored.CostBasis.Cmp(want) != 0 {
		t.Fatalf("cost basis drifted to %s", stored.CostBasis)
	}
}

func TestResaleCreate_SubBalances(t *testing.T) {
	repo := newStubRepo()
	svc := newResaleService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	seedCoverage(repo, sale.ID, "600", "430", 0, time.Now().UTC())

	// covered sub-balance is 600: listing 700 covered must fail
	_, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("700"),
		AskPrice:       d("190"),
		PositionType:   models.PositionCovered,
	})
	if !errors.Is(err, ErrVolumeExceedsBalance) {
		t.Fatalf("err=%v want ErrVolumeExceedsBalance", err)
	}

	// uncovered sub-balance is 400
	if _, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("400"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	}); err != nil {
		t.Fatalf("err=%v", err)
	}

	// open listings count against the balance
	_, err = svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("1"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	})
	if !errors.Is(err, ErrVolumeExceedsBalance) {
		t.Fatalf("err=%v want ErrVolumeExceedsBalance", err)
	}
}

func TestResaleCreate_NotOwner(t *testing.T) {
	repo := newStubRepo()
	svc := newResaleService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")

	_, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 99,
		Volume:         d("100"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err=%v want ErrNotOwner", err)
	}
}

func TestResaleLifecycle(t *testing.T) {
	repo := newStubRepo()
	svc := newResaleService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")

	listing, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("500"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	if err := svc.Approve(context.Background(), listing.ID); err != nil {
		t.Fatalf("approve err=%v", err)
	}
	stored, _ := repo.GetResaleListingByID(context.Background(), listing.ID)
	if stored.Status != models.ListingListed {
		t.Fatalf("status=%s want=listed", stored.Status)
	}
	if stored.ValidatedAt == nil {
		t.Fatalf("validated_at not set")
	}

	// a second approve lost the race
	if err := svc.Approve(context.Background(), listing.ID); !errors.Is(err, ErrStaleState) {
		t.Fatalf("err=%v want ErrStaleState", err)
	}

	// withdraw by a stranger is forbidden, by the owner fine
	if err := svc.Withdraw(context.Background(), listing.ID, 99); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err=%v want ErrNotOwner", err)
	}
	if err := svc.Withdraw(context.Background(), listing.ID, 1); err != nil {
		t.Fatalf("withdraw err=%v", err)
	}
	stored, _ = repo.GetResaleListingByID(context.Background(), listing.ID)
	if stored.Status != models.ListingWithdrawn {
		t.Fatalf("status=%s want=withdrawn", stored.Status)
	}
}

func TestResaleReject_Terminal(t *testing.T) {
	repo := newStubRepo()
	svc := newResaleService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")

	listing, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("500"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := svc.Reject(context.Background(), listing.ID); err != nil {
		t.Fatalf("reject err=%v", err)
	}
	if err := svc.Approve(context.Background(), listing.ID); !errors.Is(err, ErrStaleState) {
		t.Fatalf("err=%v want ErrStaleState", err)
	}

	// rejected tonnage falls back into the sale's balance
	if _, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("1000"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	}); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestResaleExpiry_AdvisoryOnly(t *testing.T) {
	repo := newStubRepo()
	svc := newResaleService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")

	listing, err := svc.Create(context.Background(), CreateListingInput{
		SaleID:         sale.ID,
		SellerClientID: 1,
		Volume:         d("500"),
		AskPrice:       d("190"),
		PositionType:   models.PositionUncovered,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	// push the watermark into the past
	repo.listings[listing.ID].ValidationExpiry = time.Now().UTC().Add(-time.Hour)

	views, err := svc.List(context.Background(), listParamsForSale(sale.ID))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(views) != 1 || !views[0].Expired {
		t.Fatalf("views=%v want one expired listing", views)
	}
	if views[0].Status != models.ListingPendingValidation {
		t.Fatalf("status=%s want still pending_validation", views[0].Status)
	}

	// the expired flag does not block a late approval
	if err := svc.Approve(context.Background(), listing.ID); err != nil {
		t.Fatalf("late approve err=%v", err)
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"graindesk/internal/models"
	"graindesk/internal/product"
)

func newPnLService(repo *stubRepo) *PnLService {
	prices := RepoPrices{Repo: repo}
	return &PnLService{
		Repo:      repo,
		Prices:    prices,
		Positions: &PositionService{Repo: repo, Prices: prices},
	}
}

func seedPurchaseCoverage(repo *stubRepo, vesselID uint64, tonnage, price string) {
	_ = repo.InsertPurchaseCoverage(context.Background(), &models.PurchaseCoverage{
		VesselID:     vesselID,
		Product:      string(product.Corn),
		Reference:    "ZCZ6",
		Tonnage:      d(tonnage),
		FuturesPrice: d(price),
		TradedAt:     time.Now().UTC(),
	})
}

func TestVesselPnL_PrimeWithHedges(t *testing.T) {
	repo := newStubRepo()
	svc := newPnLService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	seedPurchaseCoverage(repo, vessel.ID, "1000", "440")
	sale := seedSale(repo, vessel.ID, 1, "1000", "20")
	seedCoverage(repo, sale.ID, "600", "430", 0, time.Now().UTC())

	out, err := svc.VesselPnL(context.Background(), vessel.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	factor := d("0.3937")
	// purchase blend: 1000@440 hedged, 4000@450 open over 5000t
	wantPurchase := d("448").Mul(factor)
	if out.PurchasePRU.Cmp(wantPurchase) != 0 {
		t.Fatalf("purchase pru=%s want=%s", out.PurchasePRU, wantPurchase)
	}
	// sale PRU 458 vs purchase 448 over 1000t
	wantPrime := d("10").Mul(factor).Mul(d("1000"))
	if out.PnLPrime.Cmp(wantPrime) != 0 {
		t.Fatalf("prime pnl=%s want=%s", out.PnLPrime, wantPrime)
	}
	if !out.PnLFlat.IsZero() {
		t.Fatalf("flat pnl=%s want=0", out.PnLFlat)
	}
	// short sale leg loses (430-450)*600, long purchase leg earns (450-440)*1000
	wantFutures := d("-20").Mul(d("600")).Mul(factor).
		Add(d("10").Mul(d("1000")).Mul(factor))
	if out.PnLFutures.Cmp(wantFutures) != 0 {
		t.Fatalf("futures pnl=%s want=%s", out.PnLFutures, wantFutures)
	}
	if out.PnLTotal.Cmp(wantPrime.Add(wantFutures)) != 0 {
		t.Fatalf("total=%s want=%s", out.PnLTotal, wantPrime.Add(wantFutures))
	}
	if out.SoldVolume.Cmp(d("1000")) != 0 || out.UnsoldVolume.Cmp(d("4000")) != 0 {
		t.Fatalf("sold=%s unsold=%s want 1000/4000", out.SoldVolume, out.UnsoldVolume)
	}
	if out.AvgSalePRU.Cmp(d("458").Mul(factor)) != 0 {
		t.Fatalf("avg sale pru=%s", out.AvgSalePRU)
	}
}

func TestVesselPnL_FlatSaleBucketsSeparately(t *testing.T) {
	repo := newStubRepo()
	svc := newPnLService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	flat := &models.Sale{
		VesselID:    vessel.ID,
		ClientID:    1,
		Volume:      d("2000"),
		PricingMode: models.PricingFlat,
		FlatPrice:   d("180"),
		Status:      "active",
	}
	if err := repo.InsertSale(context.Background(), flat); err != nil {
		t.Fatalf("insert err=%v", err)
	}

	out, err := svc.VesselPnL(context.Background(), vessel.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// purchase PRU is 450*0.3937 = 177.165, flat sale at 180
	wantFlat := d("180").Sub(d("450").Mul(d("0.3937"))).Mul(d("2000"))
	if out.PnLFlat.Cmp(wantFlat) != 0 {
		t.Fatalf("flat pnl=%s want=%s", out.PnLFlat, wantFlat)
	}
	if !out.PnLPrime.IsZero() {
		t.Fatalf("prime pnl=%s want=0", out.PnLPrime)
	}
}

func TestVesselPnL_SkipsUnpriceableSales(t *testing.T) {
	repo := newStubRepo()
	svc := newPnLService(repo)
	seedPrice(repo, "ZCZ6", "450")
	vessel := seedVessel(repo, product.Corn, "5000")
	seedSale(repo, vessel.ID, 1, "1000", "20")
	orphanRef := &models.Sale{
		VesselID:    vessel.ID,
		ClientID:    1,
		Volume:      d("500"),
		PricingMode: models.PricingPrime,
		Reference:   "ZWH7", // no quote seeded
		Premium:     d("15"),
		Status:      "active",
	}
	if err := repo.InsertSale(context.Background(), orphanRef); err != nil {
		t.Fatalf("insert err=%v", err)
	}

	out, err := svc.VesselPnL(context.Background(), vessel.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.SoldVolume.Cmp(d("1000")) != 0 {
		t.Fatalf("sold=%s want only the priceable 1000", out.SoldVolume)
	}
}

func TestClientPnL_RealizedNetOfCommission(t *testing.T) {
	repo := newStubRepo()
	svc := newPnLService(repo)
	seedPrice(repo, "ZCZ6", "450")
	client := &models.Client{Name: "Agro Trade SA", Active: true}
	if err := repo.InsertClient(context.Background(), client); err != nil {
		t.Fatalf("insert err=%v", err)
	}
	vessel := seedVessel(repo, product.Corn, "5000")
	seedSale(repo, vessel.ID, client.ID, "1000", "20")

	if err := repo.InsertTransactionTx(context.Background(), nil, &models.Transaction{
		Reference:      "txn-1",
		SellerClientID: client.ID,
		BuyerClientID:  99,
		Volume:         d("500"),
		SellerGain:     d("2500"),
		Commission:     d("100"),
	}); err != nil {
		t.Fatalf("insert err=%v", err)
	}

	out, err := svc.ClientPnL(context.Background(), client.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.PnLRealized.Cmp(d("2400")) != 0 {
		t.Fatalf("realized=%s want=2400", out.PnLRealized)
	}
	if out.OpenVolume.Cmp(d("1000")) != 0 {
		t.Fatalf("open volume=%s want=1000", out.OpenVolume)
	}
	// unhedged prime sale: PRU 470 vs purchase 450, both on the same quote
	factor := d("0.3937")
	wantPrime := d("20").Mul(factor).Mul(d("1000"))
	if out.PnLPrime.Cmp(wantPrime) != 0 {
		t.Fatalf("prime pnl=%s want=%s", out.PnLPrime, wantPrime)
	}
	if out.PnLTotal.Cmp(wantPrime.Add(d("2400"))) != 0 {
		t.Fatalf("total=%s", out.PnLTotal)
	}
}

func TestClientPnL_UnknownClient(t *testing.T) {
	repo := newStubRepo()
	svc := newPnLService(repo)
	if _, err := svc.ClientPnL(context.Background(), 42); err != ErrNotFound {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

// Package metrics provides Prometheus instrumentation for the desk engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ListingsTotal counts resale listings by final disposition of each transition.
	ListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graindesk_listings_total",
		Help: "Resale listing transitions",
	}, []string{"transition"})

	// BidsTotal counts bids placed, accepted, and rejected.
	BidsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graindesk_bids_total",
		Help: "Bids by outcome",
	}, []string{"outcome"})

	// SettlementsTotal counts completed bid settlements.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graindesk_settlements_total",
		Help: "Total settled transactions",
	})

	// SettlementDuration tracks the latency of the atomic settlement path.
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graindesk_settlement_duration_seconds",
		Help:    "Settlement transaction duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	// OrphanedCoverageTonnes tracks the tonnage of coverage detached from sales.
	OrphanedCoverageTonnes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graindesk_orphaned_coverage_tonnes",
		Help: "Current orphaned hedge tonnage",
	})

	// RollsTotal counts reference rolls by entity kind.
	RollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graindesk_rolls_total",
		Help: "Reference rolls",
	}, []string{"entity"})

	// PriceUpdatesTotal counts reference price upserts by origin.
	PriceUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graindesk_price_updates_total",
		Help: "Reference price updates",
	}, []string{"origin"})
)

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

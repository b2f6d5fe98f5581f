package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"graindesk/internal/product"
	"graindesk/internal/repository"
	"graindesk/internal/service"
)

type VesselHandler struct {
	Repo      repository.Repository
	Positions *service.PositionService
	Coverages *service.CoverageService
	Rolls     *service.RollService
}

func (h *VesselHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/vessels")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/coverages", h.addCoverage)
	g.GET("/:id/coverages", h.listCoverages)
	g.POST("/:id/roll", h.roll)
}

type createVesselRequest struct {
	Name        string          `json:"name" binding:"required"`
	Product     string          `json:"product" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	PricingMode string          `json:"pricing_mode" binding:"required"`
	Reference   string          `json:"reference"`
	Premium     decimal.Decimal `json:"premium"`
	FlatPrice   decimal.Decimal `json:"flat_price"`
	Incoterm    string          `json:"incoterm"`
	FreightRate decimal.Decimal `json:"freight_rate"`
}

// @Summary Register a purchased cargo
// @Tags vessels
// @Accept json
// @Produce json
// @Router /api/v1/vessels [post]
func (h *VesselHandler) create(c *gin.Context) {
	var req createVesselRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Positions.CreateVessel(c.Request.Context(), service.CreateVesselInput{
		Name:        req.Name,
		Product:     product.Product(req.Product),
		Quantity:    req.Quantity,
		PricingMode: req.PricingMode,
		Reference:   req.Reference,
		Premium:     req.Premium,
		FlatPrice:   req.FlatPrice,
		Incoterm:    req.Incoterm,
		FreightRate: req.FreightRate,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *VesselHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListVesselsParams{
		Limit:   limit,
		Offset:  offset,
		Product: strQueryPtr(c, "product"),
	}
	items, err := h.Repo.ListVessels(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

func (h *VesselHandler) get(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetVesselByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "vessel not found", nil)
		return
	}
	Ok(c, item, nil)
}

type coverageRequest struct {
	Contracts    int64           `json:"contracts"`
	Tonnage      decimal.Decimal `json:"tonnage"`
	FuturesPrice decimal.Decimal `json:"futures_price" binding:"required"`
	TradedAt     time.Time       `json:"traded_at"`
}

// @Summary Book a purchase-side hedge
// @Tags vessels
// @Accept json
// @Produce json
// @Router /api/v1/vessels/{id}/coverages [post]
func (h *VesselHandler) addCoverage(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req coverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, warnings, err := h.Coverages.RecordPurchaseCoverage(c.Request.Context(), id, service.RecordCoverageInput{
		Contracts:    req.Contracts,
		Tonnage:      req.Tonnage,
		FuturesPrice: req.FuturesPrice,
		TradedAt:     req.TradedAt,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	var meta map[string]any
	if len(warnings) > 0 {
		meta = map[string]any{"warnings": warnings}
	}
	Ok(c, item, meta)
}

func (h *VesselHandler) listCoverages(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Repo.ListPurchaseCoveragesByVesselID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

type rollRequest struct {
	Volume    decimal.Decimal `json:"volume" binding:"required"`
	Reference string          `json:"reference" binding:"required"`
}

// @Summary Roll part of a vessel onto a new reference
// @Tags vessels
// @Accept json
// @Produce json
// @Router /api/v1/vessels/{id}/roll [post]
func (h *VesselHandler) roll(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req rollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	child, err := h.Rolls.RollVessel(c.Request.Context(), id, req.Volume, req.Reference)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, child, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"graindesk/internal/repository"
	"graindesk/internal/service"
)

type SaleHandler struct {
	Repo      repository.Repository
	Positions *service.PositionService
	Coverages *service.CoverageService
	Rolls     *service.RollService
}

func (h *SaleHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/sales")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/pru", h.pru)
	g.POST("/:id/coverages", h.addCoverage)
	g.POST("/:id/roll", h.roll)
}

type createSaleRequest struct {
	VesselID    uint64          `json:"vessel_id" binding:"required"`
	ClientID    uint64          `json:"client_id" binding:"required"`
	Volume      decimal.Decimal `json:"volume" binding:"required"`
	PricingMode string          `json:"pricing_mode" binding:"required"`
	Reference   string          `json:"reference"`
	Premium     decimal.Decimal `json:"premium"`
	FlatPrice   decimal.Decimal `json:"flat_price"`
}

// @Summary Book a client sale against a vessel
// @Tags sales
// @Accept json
// @Produce json
// @Router /api/v1/sales [post]
func (h *SaleHandler) create(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Positions.CreateSale(c.Request.Context(), service.CreateSaleInput{
		VesselID:    req.VesselID,
		ClientID:    req.ClientID,
		Volume:      req.Volume,
		PricingMode: req.PricingMode,
		Reference:   req.Reference,
		Premium:     req.Premium,
		FlatPrice:   req.FlatPrice,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *SaleHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSalesParams{
		Limit:    limit,
		Offset:   offset,
		VesselID: uint64QueryPtr(c, "vessel_id"),
		ClientID: uint64QueryPtr(c, "client_id"),
		Status:   strQueryPtr(c, "status"),
	}
	items, err := h.Repo.ListSales(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

func (h *SaleHandler) get(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetSaleByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "sale not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Price a sale position
// @Tags sales
// @Produce json
// @Router /api/v1/sales/{id}/pru [get]
func (h *SaleHandler) pru(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	view, err := h.Positions.ComputePRU(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, view, nil)
}

// @Summary Book a sale-side hedge
// @Tags sales
// @Accept json
// @Produce json
// @Router /api/v1/sales/{id}/coverages [post]
func (h *SaleHandler) addCoverage(c *gin.Context) {
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
	item, warnings, err := h.Coverages.RecordSaleCoverage(c.Request.Context(), id, service.RecordCoverageInput{
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

// @Summary Roll part of a sale onto a new reference
// @Tags sales
// @Accept json
// @Produce json
// @Router /api/v1/sales/{id}/roll [post]
func (h *SaleHandler) roll(c *gin.Context) {
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
	child, err := h.Rolls.RollSale(c.Request.Context(), id, req.Volume, req.Reference)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, child, nil)
}

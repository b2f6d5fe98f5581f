package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"graindesk/internal/repository"
	"graindesk/internal/service"
)

type ResaleHandler struct {
	Repo    repository.Repository
	Resales *service.ResaleService
}

func (h *ResaleHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/resales")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/withdraw", h.withdraw)
}

type createListingRequest struct {
	SaleID         uint64          `json:"sale_id" binding:"required"`
	SellerClientID uint64          `json:"seller_client_id" binding:"required"`
	Volume         decimal.Decimal `json:"volume" binding:"required"`
	AskPrice       decimal.Decimal `json:"ask_price" binding:"required"`
	PositionType   string          `json:"position_type" binding:"required"`
}

// @Summary List a slice of an owned sale on the secondary market
// @Tags resales
// @Accept json
// @Produce json
// @Router /api/v1/resales [post]
func (h *ResaleHandler) create(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Resales.Create(c.Request.Context(), service.CreateListingInput{
		SaleID:         req.SaleID,
		SellerClientID: req.SellerClientID,
		Volume:         req.Volume,
		AskPrice:       req.AskPrice,
		PositionType:   req.PositionType,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *ResaleHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListListingsParams{
		Limit:           limit,
		Offset:          offset,
		Status:          strQueryPtr(c, "status"),
		SaleID:          uint64QueryPtr(c, "sale_id"),
		SellerClientID:  uint64QueryPtr(c, "seller_client_id"),
		ExcludeClientID: uint64QueryPtr(c, "exclude_client_id"),
	}
	items, err := h.Resales.List(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

func (h *ResaleHandler) get(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetResaleListingByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "listing not found", nil)
		return
	}
	Ok(c, service.ListingView{ResaleListing: *item, Expired: item.ExpiredPending(time.Now().UTC())}, nil)
}

// @Summary Approve a pending listing
// @Tags resales
// @Produce json
// @Router /api/v1/resales/{id}/approve [post]
func (h *ResaleHandler) approve(c *gin.Context) {
	h.transition(c, h.Resales.Approve)
}

// @Summary Reject a pending listing
// @Tags resales
// @Produce json
// @Router /api/v1/resales/{id}/reject [post]
func (h *ResaleHandler) reject(c *gin.Context) {
	h.transition(c, h.Resales.Reject)
}

type withdrawRequest struct {
	ClientID uint64 `json:"client_id" binding:"required"`
}

// @Summary Withdraw an own listing from the market
// @Tags resales
// @Accept json
// @Produce json
// @Router /api/v1/resales/{id}/withdraw [post]
func (h *ResaleHandler) withdraw(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Resales.Withdraw(c.Request.Context(), id, req.ClientID); err != nil {
		Fail(c, err)
		return
	}
	item, _ := h.Repo.GetResaleListingByID(c.Request.Context(), id)
	Ok(c, item, nil)
}

func (h *ResaleHandler) transition(c *gin.Context, fn func(ctx context.Context, id uint64) error) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	item, _ := h.Repo.GetResaleListingByID(c.Request.Context(), id)
	Ok(c, item, nil)
}

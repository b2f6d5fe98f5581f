package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"graindesk/internal/repository"
	"graindesk/internal/service"
)

type BidHandler struct {
	Repo        repository.Repository
	Settlements *service.SettlementService
}

func (h *BidHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/resales/:id/bids", h.place)

	g := r.Group("/api/v1/bids")
	g.GET("", h.list)
	g.POST("/:id/accept", h.accept)
	g.POST("/:id/reject", h.reject)
}

type placeBidRequest struct {
	BidderClientID uint64          `json:"bidder_client_id" binding:"required"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	Volume         decimal.Decimal `json:"volume" binding:"required"`
}

// @Summary Place a bid on a listed resale
// @Tags bids
// @Accept json
// @Produce json
// @Router /api/v1/resales/{id}/bids [post]
func (h *BidHandler) place(c *gin.Context) {
	listingID := uint64Param(c, "id")
	if listingID == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Settlements.PlaceBid(c.Request.Context(), service.PlaceBidInput{
		ListingID:      listingID,
		BidderClientID: req.BidderClientID,
		Price:          req.Price,
		Volume:         req.Volume,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *BidHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListBidsParams{
		Limit:          limit,
		Offset:         offset,
		ListingID:      uint64QueryPtr(c, "listing_id"),
		BidderClientID: uint64QueryPtr(c, "bidder_client_id"),
		Status:         strQueryPtr(c, "status"),
	}
	items, err := h.Repo.ListBids(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary Accept a bid and settle the trade
// @Tags bids
// @Produce json
// @Router /api/v1/bids/{id}/accept [post]
func (h *BidHandler) accept(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	txn, err := h.Settlements.AcceptBid(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, txn, nil)
}

// @Summary Reject a bid
// @Tags bids
// @Produce json
// @Router /api/v1/bids/{id}/reject [post]
func (h *BidHandler) reject(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Settlements.RejectBid(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	item, _ := h.Repo.GetBidByID(c.Request.Context(), id)
	Ok(c, item, nil)
}

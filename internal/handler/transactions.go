package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"graindesk/internal/repository"
)

// TransactionHandler is the read side of the settlement ledger plus the
// back-office payout flag.
type TransactionHandler struct {
	Repo repository.Repository
}

func (h *TransactionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/transactions")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/pnl-paid", h.markPaid)
}

func (h *TransactionHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTransactionsParams{
		Limit:          limit,
		Offset:         offset,
		SellerClientID: uint64QueryPtr(c, "seller_client_id"),
		BuyerClientID:  uint64QueryPtr(c, "buyer_client_id"),
		ListingID:      uint64QueryPtr(c, "listing_id"),
		PnLPaid:        boolQueryPtr(c, "pnl_paid"),
	}
	items, err := h.Repo.ListTransactions(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

func (h *TransactionHandler) get(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "transaction not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Mark a settlement's gain as paid out
// @Tags transactions
// @Produce json
// @Router /api/v1/transactions/{id}/pnl-paid [post]
func (h *TransactionHandler) markPaid(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "transaction not found", nil)
		return
	}
	if err := h.Repo.MarkTransactionPnLPaid(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	item.PnLPaid = true
	Ok(c, item, nil)
}

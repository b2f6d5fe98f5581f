package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"graindesk/internal/repository"
	"graindesk/internal/service"
)

type PriceHandler struct {
	Repo repository.Repository
	Sync *service.PriceSyncService
}

func (h *PriceHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/prices")
	g.GET("", h.list)
	g.GET("/:reference", h.get)
	g.POST("/sync", h.sync)
}

func (h *PriceHandler) list(c *gin.Context) {
	items, err := h.Repo.ListReferencePrices(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *PriceHandler) get(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		Error(c, http.StatusBadRequest, "invalid reference", nil)
		return
	}
	item, err := h.Repo.GetReferencePrice(c.Request.Context(), reference)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "reference price not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Trigger a feed pull outside the schedule
// @Tags prices
// @Produce json
// @Router /api/v1/prices/sync [post]
func (h *PriceHandler) sync(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusServiceUnavailable, "price sync unavailable", nil)
		return
	}
	if err := h.Sync.SyncOnce(c.Request.Context()); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	state, _ := h.Repo.GetSyncState(c.Request.Context(), "price_feed")
	Ok(c, state, nil)
}

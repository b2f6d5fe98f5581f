package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"graindesk/internal/service"
)

type PnLHandler struct {
	PnL *service.PnLService
}

func (h *PnLHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/pnl")
	g.GET("/vessels/:id", h.vessel)
	g.GET("/clients/:id", h.client)
}

// @Summary Profit breakdown for one vessel
// @Tags pnl
// @Produce json
// @Router /api/v1/pnl/vessels/{id} [get]
func (h *PnLHandler) vessel(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.PnL.VesselPnL(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Profit breakdown for one client
// @Tags pnl
// @Produce json
// @Router /api/v1/pnl/clients/{id} [get]
func (h *PnLHandler) client(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.PnL.ClientPnL(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

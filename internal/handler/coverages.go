package handler

import (
	"github.com/gin-gonic/gin"

	"graindesk/internal/repository"
	"graindesk/internal/service"
)

// CoverageHandler exposes the hedge book, including the orphaned records
// futures administration reconciles against broker statements.
type CoverageHandler struct {
	Repo      repository.Repository
	Coverages *service.CoverageService
}

func (h *CoverageHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/coverages")
	g.GET("", h.list)
	g.GET("/orphaned", h.orphaned)
}

func (h *CoverageHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListCoveragesParams{
		Limit:     limit,
		Offset:    offset,
		SaleID:    uint64QueryPtr(c, "sale_id"),
		Orphaned:  boolQueryPtr(c, "orphaned"),
		Reference: strQueryPtr(c, "reference"),
	}
	items, err := h.Repo.ListSaleCoverages(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary List coverage detached from settled sales
// @Tags coverages
// @Produce json
// @Router /api/v1/coverages/orphaned [get]
func (h *CoverageHandler) orphaned(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Coverages.ListOrphaned(c.Request.Context(), limit, offset)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

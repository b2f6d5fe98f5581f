package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"graindesk/internal/models"
	"graindesk/internal/repository"
)

type ClientHandler struct {
	Repo repository.Repository
}

func (h *ClientHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/clients")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

type createClientRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

func (h *ClientHandler) create(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.Client{
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.TrimSpace(req.Email),
		Active: true,
	}
	if err := h.Repo.InsertClient(c.Request.Context(), item); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *ClientHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListClientsParams{
		Limit:  limit,
		Offset: offset,
		Active: boolQueryPtr(c, "active"),
	}
	items, err := h.Repo.ListClients(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

func (h *ClientHandler) get(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetClientByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "client not found", nil)
		return
	}
	Ok(c, item, nil)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"graindesk/internal/repository"
)

type NotificationHandler struct {
	Repo repository.Repository
}

func (h *NotificationHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/notifications", h.list)
}

func (h *NotificationHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListNotificationsParams{
		Limit:  limit,
		Offset: offset,
		Topic:  strQueryPtr(c, "topic"),
	}
	items, err := h.Repo.ListNotifications(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

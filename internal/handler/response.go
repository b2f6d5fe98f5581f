package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"graindesk/internal/hedging"
	"graindesk/internal/pricing"
	"graindesk/internal/product"
	"graindesk/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps service errors onto HTTP statuses: malformed input is 400, a
// lost state race is 409, a numerically impossible request is 422.
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrStaleState),
		errors.Is(err, service.ErrAcceptedBidExists):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrOwnListing):
		Error(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMissingFreightRate),
		errors.Is(err, product.ErrUnknownProduct),
		errors.Is(err, product.ErrNoContractSize),
		errors.Is(err, hedging.ErrMissingReference),
		errors.Is(err, hedging.ErrSameReference):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrVolumeExceedsBalance),
		errors.Is(err, hedging.ErrInvalidRollVolume),
		errors.Is(err, pricing.ErrZeroVolumePosition):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, service.ErrPriceUnavailable):
		Error(c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func uint64QueryPtr(c *gin.Context, key string) *uint64 {
	if id := parseUint64(c.Query(key)); id > 0 {
		return &id
	}
	return nil
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func uint64Param(c *gin.Context, key string) uint64 {
	return parseUint64(c.Param(key))
}

func parseUint64(v string) uint64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var out uint64
	for i := 0; i < len(v); i++ {
		ch := v[i]
		if ch < '0' || ch > '9' {
			return 0
		}
		out = out*10 + uint64(ch-'0')
	}
	return out
}

func paginationMeta(limit, offset, count int) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return map[string]any{
		"limit":  limit,
		"offset": offset,
		"count":  count,
	}
}

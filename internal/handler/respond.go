package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sales-backend/internal/service"
)

// respondError maps the service error taxonomy onto HTTP responses. Every
// handler funnels service failures through here.
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	var tErr *service.InvalidTransitionError
	var sErr *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &sErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock", "details": sErr.Details})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
	case errors.Is(err, service.ErrOrderNotEditable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only draft orders can be edited."})
	case errors.As(err, &tErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": tErr.Message})
	case errors.Is(err, service.ErrProtectedReference):
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete: record is referenced by existing data"})
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a positive integer", name)})
		return 0, false
	}
	return uint(id), true
}

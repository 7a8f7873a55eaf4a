package api

import (
	"errors"
	"net/http"

	"storefront-api/internal/service"
	"storefront-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service and store errors onto HTTP statuses
func statusFor(err error) int {
	var (
		validation *service.ValidationError
		txErr      *service.TransactionError
		cmdErr     *service.CommandError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &txErr), errors.As(err, &cmdErr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConsoleDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, store.ErrSchemaUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes {"error": ...}. Upstream failures keep
// the driver message in details.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)

	h.logger.Warn("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err))

	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Warn("Bad request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

var errorStatus = []struct {
	kind   error
	status int
}{
	{entity.ErrNotFound, http.StatusNotFound},
	{entity.ErrForbidden, http.StatusForbidden},
	{entity.ErrCircularReference, http.StatusBadRequest},
	{entity.ErrInvalidInput, http.StatusBadRequest},
	{entity.ErrConflict, http.StatusConflict},
	{entity.ErrInsufficientStock, http.StatusConflict},
	{entity.ErrInvalidTransition, http.StatusConflict},
	{entity.ErrHasChildren, http.StatusConflict},
	{entity.ErrHasProducts, http.StatusConflict},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError maps domain errors to their status. Anything unrecognised is
// logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

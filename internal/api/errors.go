package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"meritboard/internal/auth"
	"meritboard/internal/ledger"
	"meritboard/internal/merit"
	"meritboard/internal/store"
)

// writeError maps a service error to its status and message. fallback names the
// failed operation and is used for validation and unexpected failures.
func writeError(c *gin.Context, log *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, merit.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
	case errors.Is(err, ledger.ErrInvalidPoints):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Points must be a positive number"})
	case errors.Is(err, store.ErrDuplicateKey),
		errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, merit.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": fallback, "error": err.Error()})
	case errors.Is(err, ledger.ErrActivityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Activity not found"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Student not found"})
	default:
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}

// badRequest reports a body that could not be bound.
func badRequest(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg, "error": err.Error()})
}

// Package handler exposes the custody ledger over HTTP. All endpoints speak
// a common envelope: {"success": bool, "message": string, "data": ...}.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forensic-chain/forchain/internal/custody/model"
)

// response is the wire envelope shared by every endpoint.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, response{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, response{Success: false, Message: message})
}

// failDomain maps a domain error to its HTTP status and emits the envelope.
func failDomain(c *gin.Context, err error) {
	c.JSON(statusFor(err), response{Success: false, Message: err.Error()})
}

// statusFor picks the HTTP status for a domain error kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrUnknownParticipant),
		errors.Is(err, model.ErrOwnerMismatch),
		errors.Is(err, model.ErrInactive),
		errors.Is(err, model.ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vaultd/internal/errs"
	"vaultd/internal/registry"
	"vaultd/internal/roles"
	"vaultd/internal/token"
	"vaultd/internal/vault"
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

// Fail renders a domain error. Coded errors keep their component code in
// the envelope; the HTTP status reflects the failure class.
func Fail(c *gin.Context, err error) {
	status := statusFor(err)
	if code, ok := errs.Code(err); ok {
		c.JSON(status, apiResponse{
			Code:    int(code),
			Message: err.Error(),
		})
		return
	}
	Error(c, status, err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, roles.ErrNotAuthorized),
		errors.Is(err, vault.ErrNotAdmin),
		errors.Is(err, vault.ErrNotKeeper),
		errors.Is(err, registry.ErrNotAuthorized),
		errors.Is(err, token.ErrNotVault):
		return http.StatusForbidden
	case errors.Is(err, roles.ErrAlreadyExists),
		errors.Is(err, registry.ErrStrategyExists),
		errors.Is(err, vault.ErrPaused),
		errors.Is(err, vault.ErrCapExceeded):
		return http.StatusConflict
	case errors.Is(err, registry.ErrStrategyNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

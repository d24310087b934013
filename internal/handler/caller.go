package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vaultd/internal/identity"
)

// CallerHeader names the header carrying the acting identity. Signature
// verification is the gateway's job; by the time a request lands here the
// header is trusted.
const CallerHeader = "X-Caller-ID"

// callerFrom extracts the acting identity or renders a 401.
func callerFrom(c *gin.Context) (identity.Identity, bool) {
	id := identity.Parse(c.GetHeader(CallerHeader))
	if id.IsZero() {
		Error(c, http.StatusUnauthorized, "caller identity required", nil)
		return "", false
	}
	return id, true
}

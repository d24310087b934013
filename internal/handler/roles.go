package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vaultd/internal/identity"
	"vaultd/internal/service"
)

type RolesHandler struct {
	Service *service.VaultService
}

func (h *RolesHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/roles")
	group.GET("", h.overview)
	group.PUT("/admin", h.setAdmin)
	group.POST("/keepers", h.addKeeper)
	group.DELETE("/keepers/:id", h.removeKeeper)
	group.POST("/pausers", h.addPauser)
	group.DELETE("/pausers/:id", h.removePauser)
	group.POST("/pause", h.pause)
	group.POST("/unpause", h.unpause)
	group.POST("/emergency-pause", h.emergencyPause)
}

// @Summary Role membership and pause state
// @Tags roles
// @Success 200 {object} apiResponse
// @Router /api/v1/roles [get]
func (h *RolesHandler) overview(c *gin.Context) {
	mgr := h.Service.Roles
	Ok(c, gin.H{
		"admin":   mgr.Admin().String(),
		"keepers": mgr.Keepers(),
		"pausers": mgr.Pausers(),
		"paused":  mgr.IsPaused(),
	}, nil)
}

type memberRequest struct {
	ID string `json:"id" binding:"required"`
}

// @Summary Transfer the admin role
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Param body body memberRequest true "new admin"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/admin [put]
func (h *RolesHandler) setAdmin(c *gin.Context) {
	caller, id, ok := h.callerAndMember(c)
	if !ok {
		return
	}
	got, err := h.Service.SetAdmin(c.Request.Context(), caller, id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"admin": got.String()}, nil)
}

// @Summary Grant the keeper role
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Param body body memberRequest true "member"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/keepers [post]
func (h *RolesHandler) addKeeper(c *gin.Context) {
	caller, id, ok := h.callerAndMember(c)
	if !ok {
		return
	}
	if err := h.Service.AddKeeper(c.Request.Context(), caller, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"id": id.String()}, nil)
}

// @Summary Revoke the keeper role
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Param id path string true "member identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/keepers/{id} [delete]
func (h *RolesHandler) removeKeeper(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	id := identity.Parse(c.Param("id"))
	if id.IsZero() {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	if err := h.Service.RemoveKeeper(c.Request.Context(), caller, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"id": id.String()}, nil)
}

// @Summary Grant the pauser role
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Param body body memberRequest true "member"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/pausers [post]
func (h *RolesHandler) addPauser(c *gin.Context) {
	caller, id, ok := h.callerAndMember(c)
	if !ok {
		return
	}
	if err := h.Service.AddPauser(c.Request.Context(), caller, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"id": id.String()}, nil)
}

// @Summary Revoke the pauser role
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Param id path string true "member identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/pausers/{id} [delete]
func (h *RolesHandler) removePauser(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	id := identity.Parse(c.Param("id"))
	if id.IsZero() {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	if err := h.Service.RemovePauser(c.Request.Context(), caller, id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"id": id.String()}, nil)
}

// @Summary Pause vault operations
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/pause [post]
func (h *RolesHandler) pause(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	got, err := h.Service.SetPaused(c.Request.Context(), caller, true)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"paused": got}, nil)
}

// @Summary Resume vault operations
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/unpause [post]
func (h *RolesHandler) unpause(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	got, err := h.Service.Unpause(c.Request.Context(), caller)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"paused": got}, nil)
}

// @Summary Emergency pause
// @Tags roles
// @Param X-Caller-ID header string true "acting identity"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/emergency-pause [post]
func (h *RolesHandler) emergencyPause(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	got, err := h.Service.EmergencyPause(c.Request.Context(), caller)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"paused": got}, nil)
}

func (h *RolesHandler) callerAndMember(c *gin.Context) (identity.Identity, identity.Identity, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		return "", "", false
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return "", "", false
	}
	id := identity.Parse(req.ID)
	if id.IsZero() {
		Error(c, http.StatusBadRequest, "id required", nil)
		return "", "", false
	}
	return caller, id, true
}

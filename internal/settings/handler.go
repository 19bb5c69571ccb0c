package settings

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/openvote/backend/internal/models"
	"github.com/openvote/backend/pkg/response"
)

// Store is the persistence surface the settings handler needs.
type Store interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// ToggleRegistrationsRequest is the body for POST /admin/registrations.
type ToggleRegistrationsRequest struct {
	Value bool `json:"value"`
}

// Handler handles settings HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler creates a settings handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// List handles GET /settings (public).
func (h *Handler) List(c *gin.Context) {
	all, err := h.store.All(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, all)
}

// ToggleRegistrations handles POST /admin/registrations (admin only).
func (h *Handler) ToggleRegistrations(c *gin.Context) {
	var req ToggleRegistrationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	value := "false"
	if req.Value {
		value = "true"
	}
	if err := h.store.Set(c.Request.Context(), models.SettingRegistrationsClosed, value); err != nil {
		response.Internal(c, "failed to update setting")
		return
	}
	response.OK(c, gin.H{"registrationsClosed": req.Value})
}

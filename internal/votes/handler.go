package votes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openvote/backend/internal/middleware"
	"github.com/openvote/backend/internal/sessions"
	"github.com/openvote/backend/pkg/response"
)

// Broadcaster pushes an event to a session's realtime subscribers on every
// instance.
type Broadcaster interface {
	BroadcastToSessionAndPublish(sessionID uuid.UUID, event string, payload interface{})
}

// CastRequest is the body for POST /votes. Value is a pointer so that an
// explicit 0 (rescind) is distinguishable from a missing field.
type CastRequest struct {
	Value *int `json:"value" binding:"required"`
}

// Handler handles vote HTTP endpoints.
type Handler struct {
	service *Service
	hub     Broadcaster
}

// NewHandler creates a votes handler.
func NewHandler(service *Service, hub Broadcaster) *Handler {
	return &Handler{service: service, hub: hub}
}

// Cast handles POST /votes (authenticated).
func (h *Handler) Cast(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: value is required")
		return
	}

	result, err := h.service.Cast(c.Request.Context(), userID, *req.Value)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidValue):
			response.BadRequest(c, err.Error())
		case errors.Is(err, sessions.ErrNoOpenSession):
			response.Conflict(c, "no session is open for voting")
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(c, "already voted today")
		default:
			response.Internal(c, "failed to record vote")
		}
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToSessionAndPublish(result.Session.ID, "tally", result.Tally)
	}
	response.OK(c, result)
}

package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openvote/backend/internal/middleware"
	"github.com/openvote/backend/internal/models"
	"github.com/openvote/backend/pkg/response"
)

// TallySource computes the live tally for a session.
type TallySource interface {
	Live(ctx context.Context, sessionID uuid.UUID) (*models.Tally, error)
}

// PositionSource looks up a user's current position. A (nil, nil) result
// means the user has not voted in the session.
type PositionSource interface {
	GetPosition(ctx context.Context, sessionID, userID uuid.UUID) (*models.Position, error)
}

// Broadcaster pushes an event to a session's realtime subscribers on every
// instance.
type Broadcaster interface {
	BroadcastToSessionAndPublish(sessionID uuid.UUID, event string, payload interface{})
}

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Title    string     `json:"title" binding:"required"`
	StartsAt *time.Time `json:"starts_at" binding:"required"`
	EndsAt   *time.Time `json:"ends_at" binding:"required"`
}

// UpdateRequest is the body for PATCH /sessions/:id. Absent fields keep
// their prior value.
type UpdateRequest struct {
	Title    *string    `json:"title"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

// CurrentResponse is the payload for GET /sessions/open.
type CurrentResponse struct {
	Session    *models.Session  `json:"session"`
	Tally      *models.Tally    `json:"tally,omitempty"`
	MyPosition *models.Position `json:"my_position,omitempty"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	service   *Service
	tally     TallySource
	positions PositionSource
	hub       Broadcaster
}

// NewHandler creates a sessions handler.
func NewHandler(service *Service, tally TallySource, positions PositionSource, hub Broadcaster) *Handler {
	return &Handler{service: service, tally: tally, positions: positions, hub: hub}
}

// Create handles POST /sessions (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.service.Create(c.Request.Context(), req.Title, *req.StartsAt, *req.EndsAt)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.Created(c, sess)
}

// Update handles PATCH /sessions/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.service.Update(c.Request.Context(), id, UpdateParams{
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, sess)
}

// Open handles POST /sessions/:id/open (admin).
func (h *Handler) Open(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sess, err := h.service.Open(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToSessionAndPublish(sess.ID, "session_opened", sess)
	}
	response.OK(c, sess)
}

// Close handles POST /sessions/:id/close (admin).
func (h *Handler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sess, err := h.service.Close(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToSessionAndPublish(sess.ID, "session_closed", sess)
	}
	response.OK(c, sess)
}

// Delete handles DELETE /sessions/:id (admin). Cascades to positions and
// actions.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.respondErr(c, err)
		return
	}
	response.NoContent(c)
}

// List handles GET /sessions (public).
func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// Current handles GET /sessions/open (public, identity optional). Returns
// the open session with its live tally, plus the caller's own position when
// a valid token was presented.
func (h *Handler) Current(c *gin.Context) {
	sess, err := h.service.GetOpen(c.Request.Context())
	if errors.Is(err, ErrNoOpenSession) {
		response.OK(c, CurrentResponse{Session: nil})
		return
	}
	if err != nil {
		response.Internal(c, "failed to resolve open session")
		return
	}

	tally, err := h.tally.Live(c.Request.Context(), sess.ID)
	if err != nil {
		response.Internal(c, "failed to compute tally")
		return
	}

	out := CurrentResponse{Session: sess, Tally: tally}
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if userID, ok := v.(uuid.UUID); ok {
			pos, err := h.positions.GetPosition(c.Request.Context(), sess.ID, userID)
			if err == nil && pos != nil {
				out.MyPosition = pos
			}
		}
	}
	response.OK(c, out)
}

func (h *Handler) respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrAnotherOpen):
		response.Conflict(c, "another session is open")
	case errors.Is(err, ErrMissingFields):
		response.BadRequest(c, err.Error())
	default:
		response.Internal(c, "session operation failed")
	}
}

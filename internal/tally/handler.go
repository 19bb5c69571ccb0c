package tally

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openvote/backend/internal/models"
	"github.com/openvote/backend/internal/sessions"
	"github.com/openvote/backend/pkg/response"
)

// ResultResponse is the payload for GET /sessions/:id/result.
type ResultResponse struct {
	Session *models.Session `json:"session"`
	Tally   *models.Tally   `json:"tally"`
}

// HistoryResponse is one page of the action log. NextAfterID is the cursor
// for the following page; 0 when the page was empty.
type HistoryResponse struct {
	Actions     []models.Action `json:"actions"`
	NextAfterID int64           `json:"next_after_id"`
}

// Handler handles tally HTTP endpoints.
type Handler struct {
	engine       *Engine
	sessionStore SessionSource
}

// NewHandler creates a tally handler.
func NewHandler(engine *Engine, sessionStore SessionSource) *Handler {
	return &Handler{engine: engine, sessionStore: sessionStore}
}

// Result handles GET /sessions/:id/result (public). For closed sessions the
// tally is the authoritative final result; for others it is the live value.
func (h *Handler) Result(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sess, err := h.sessionStore.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	t, err := h.engine.Final(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, ResultResponse{Session: sess, Tally: t})
}

// History handles GET /sessions/:id/actions (public). Query params:
// after_id (cursor, default 0) and limit.
func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	afterID, _ := strconv.ParseInt(c.DefaultQuery("after_id", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	actions, err := h.engine.History(c.Request.Context(), id, afterID, limit)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	out := HistoryResponse{Actions: actions}
	if n := len(actions); n > 0 {
		out.NextAfterID = actions[n-1].ID
	}
	response.OK(c, out)
}

func (h *Handler) respondErr(c *gin.Context, err error) {
	if errors.Is(err, sessions.ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	response.Internal(c, "failed to compute result")
}

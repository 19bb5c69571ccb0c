// Package tally reduces the vote stores into totals: the live/final tally
// and the paginated action history that drives sentiment-over-time charts.
package tally

import (
	"context"

	"github.com/google/uuid"

	"github.com/openvote/backend/config"
	"github.com/openvote/backend/internal/models"
)

// Source supplies the aggregates the engine reduces. SumPositions reflects
// current standing (one value per voter); SumActions is the cumulative sum
// over the whole append-only log. The two are different metrics and the
// engine never mixes them.
type Source interface {
	SumPositions(ctx context.Context, sessionID uuid.UUID) (total, voters int, err error)
	SumActions(ctx context.Context, sessionID uuid.UUID) (total, voters int, err error)
	ListActions(ctx context.Context, sessionID uuid.UUID, afterID int64, limit int) ([]models.Action, error)
}

// SessionSource verifies that a session exists before computing over it.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Engine computes tallies in the configured mode.
type Engine struct {
	source   Source
	sessions SessionSource
	mode     string
}

// NewEngine creates a tally engine. Mode is config.TallyModePositions or
// config.TallyModeActions.
func NewEngine(source Source, sessions SessionSource, mode string) *Engine {
	if mode == "" {
		mode = config.TallyModePositions
	}
	return &Engine{source: source, sessions: sessions, mode: mode}
}

// Mode returns the configured tally semantics.
func (e *Engine) Mode() string {
	return e.mode
}

// Live computes the current tally for a session in any lifecycle state.
func (e *Engine) Live(ctx context.Context, sessionID uuid.UUID) (*models.Tally, error) {
	if _, err := e.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	var total, voters int
	var err error
	if e.mode == config.TallyModeActions {
		total, voters, err = e.source.SumActions(ctx, sessionID)
	} else {
		total, voters, err = e.source.SumPositions(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &models.Tally{SessionID: sessionID, Mode: e.mode, Total: total, Voters: voters}, nil
}

// Final is the live tally framed as the authoritative outcome of a closed
// session. Closing a session freezes the inputs, not the computation, so the
// arithmetic is the same as Live.
func (e *Engine) Final(ctx context.Context, sessionID uuid.UUID) (*models.Tally, error) {
	return e.Live(ctx, sessionID)
}

// History returns one page of the session's action log in insertion order.
// The bigserial action id is the cursor: pass the last id of a page as
// afterID to resume. Each call is a consistent snapshot read; concurrent
// appends only ever show up past the cursor, never inside an already-read
// page.
func (e *Engine) History(ctx context.Context, sessionID uuid.UUID, afterID int64, limit int) ([]models.Action, error) {
	if _, err := e.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	return e.source.ListActions(ctx, sessionID, afterID, limit)
}

const maxHistoryPage = 500

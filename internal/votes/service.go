package votes

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openvote/backend/internal/models"
)

// SessionSource resolves the currently open session.
type SessionSource interface {
	GetOpen(ctx context.Context) (*models.Session, error)
}

// Store is the persistence surface of the voting coordinator.
type Store interface {
	Cast(ctx context.Context, sessionID, userID uuid.UUID, value int, limit DailyLimit) (*models.Position, error)
	GetPosition(ctx context.Context, sessionID, userID uuid.UUID) (*models.Position, error)
}

// TallySource computes the live tally after a cast.
type TallySource interface {
	Live(ctx context.Context, sessionID uuid.UUID) (*models.Tally, error)
}

// CastResult is what a successful cast returns to the caller.
type CastResult struct {
	Session  *models.Session  `json:"session"`
	Position *models.Position `json:"position"`
	Tally    *models.Tally    `json:"tally"`
}

// Service is the voting coordinator: it validates a cast against lifecycle
// state, records it, and returns the fresh tally.
type Service struct {
	sessions SessionSource
	store    Store
	tally    TallySource
	limit    DailyLimit
	logger   *zap.Logger
}

// NewService creates a voting coordinator.
func NewService(sessions SessionSource, store Store, tally TallySource, limit DailyLimit, logger *zap.Logger) *Service {
	return &Service{sessions: sessions, store: store, tally: tally, limit: limit, logger: logger}
}

// Cast records a vote for the currently open session. Value 0 rescinds a
// prior position. In non-daily-limit mode a user may change their position
// any number of times; each change updates the position and appends one
// immutable action.
func (s *Service) Cast(ctx context.Context, userID uuid.UUID, value int) (*CastResult, error) {
	if !models.ValidVoteValue(value) {
		return nil, ErrInvalidValue
	}

	sess, err := s.sessions.GetOpen(ctx)
	if err != nil {
		return nil, err
	}

	pos, err := s.store.Cast(ctx, sess.ID, userID, value, s.limit)
	if err != nil {
		return nil, err
	}

	tally, err := s.tally.Live(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("vote cast",
		zap.String("session_id", sess.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("value", value),
	)
	return &CastResult{Session: sess, Position: pos, Tally: tally}, nil
}

// GetPosition returns the user's position in a session, or (nil, nil).
func (s *Service) GetPosition(ctx context.Context, sessionID, userID uuid.UUID) (*models.Position, error) {
	return s.store.GetPosition(ctx, sessionID, userID)
}

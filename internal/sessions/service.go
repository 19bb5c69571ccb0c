package sessions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openvote/backend/internal/models"
)

// Store is the persistence surface of the lifecycle manager.
type Store interface {
	Insert(ctx context.Context, title string, startsAt, endsAt time.Time) (*models.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetOpen(ctx context.Context) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, title *string, startsAt, endsAt *time.Time) (*models.Session, error)
	Open(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Close(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpdateParams carries the optional fields of a partial session update.
type UpdateParams struct {
	Title    *string
	StartsAt *time.Time
	EndsAt   *time.Time
}

// Service is the session lifecycle manager. It validates input and delegates
// the lifecycle transitions to the store, which enforces the single-open
// invariant atomically.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a session lifecycle service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create makes a new session in scheduled status.
func (s *Service) Create(ctx context.Context, title string, startsAt, endsAt time.Time) (*models.Session, error) {
	if strings.TrimSpace(title) == "" || startsAt.IsZero() || endsAt.IsZero() {
		return nil, ErrMissingFields
	}
	sess, err := s.store.Insert(ctx, strings.TrimSpace(title), startsAt, endsAt)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created", zap.String("session_id", sess.ID.String()), zap.String("title", sess.Title))
	return sess, nil
}

// Update applies a partial metadata update. Status is not restricted; fixing
// the title of an open or closed session does not reset votes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*models.Session, error) {
	if params.Title != nil {
		trimmed := strings.TrimSpace(*params.Title)
		if trimmed == "" {
			return nil, ErrMissingFields
		}
		params.Title = &trimmed
	}
	return s.store.UpdateMeta(ctx, id, params.Title, params.StartsAt, params.EndsAt)
}

// Open transitions a session to open. Fails with ErrAnotherOpen when a
// different session is open; re-opening the already-open session is an
// idempotent success.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session opened", zap.String("session_id", id.String()))
	return sess, nil
}

// Close transitions a session to closed from any status and stamps closed_at.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := s.store.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session closed", zap.String("session_id", id.String()))
	return sess, nil
}

// Delete removes a session and, by cascade, all of its positions and actions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session_id", id.String()))
	return nil
}

// GetOpen returns the currently open session, or ErrNoOpenSession.
func (s *Service) GetOpen(ctx context.Context) (*models.Session, error) {
	return s.store.GetOpen(ctx)
}

// GetByID returns a session by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all sessions, newest first.
func (s *Service) List(ctx context.Context) ([]models.Session, error) {
	return s.store.List(ctx)
}

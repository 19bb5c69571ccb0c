// Package memstore provides an in-memory implementation of the session,
// vote, tally, user and settings stores. It mirrors the transactional
// semantics of the PostgreSQL repositories (atomic cast, single-open
// invariant, cascade delete) and backs the package tests and single-binary
// development runs.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openvote/backend/internal/auth"
	"github.com/openvote/backend/internal/models"
	"github.com/openvote/backend/internal/sessions"
	"github.com/openvote/backend/internal/votes"
)

type positionKey struct {
	sessionID uuid.UUID
	userID    uuid.UUID
}

// Store is a mutex-guarded in-memory database.
type Store struct {
	mu sync.Mutex

	sessions  map[uuid.UUID]*models.Session
	order     map[uuid.UUID]int // insertion sequence, tie-break for List
	positions map[positionKey]*models.Position
	actions   []models.Action
	users     map[uuid.UUID]*models.User
	settings  map[string]string

	nextActionID int64
	seq          int
	now          func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[uuid.UUID]*models.Session),
		order:     make(map[uuid.UUID]int),
		positions: make(map[positionKey]*models.Position),
		users:     make(map[uuid.UUID]*models.User),
		settings:  map[string]string{models.SettingRegistrationsClosed: "false"},
		now:       time.Now,
	}
}

// SetNow overrides the store clock. Tests use it to cross calendar-day
// boundaries deterministically.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- sessions.Store ---

// Insert creates a session in scheduled status.
func (s *Store) Insert(_ context.Context, title string, startsAt, endsAt time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := &models.Session{
		ID:        uuid.New(),
		Title:     title,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Status:    models.StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.seq++
	s.sessions[sess.ID] = sess
	s.order[sess.ID] = s.seq
	return copySession(sess), nil
}

// GetByID returns a session by id.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return copySession(sess), nil
}

// GetOpen returns the open session, most recently updated first if the
// invariant were ever violated.
func (s *Store) GetOpen(_ context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open *models.Session
	for _, sess := range s.sessions {
		if sess.Status != models.StatusOpen {
			continue
		}
		if open == nil || sess.UpdatedAt.After(open.UpdatedAt) {
			open = sess
		}
	}
	if open == nil {
		return nil, sessions.ErrNoOpenSession
	}
	return copySession(open), nil
}

// List returns all sessions ordered by creation time, newest first.
func (s *Store) List(_ context.Context) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, *copySession(sess))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return s.order[list[i].ID] > s.order[list[j].ID]
	})
	return list, nil
}

// UpdateMeta applies a partial metadata update.
func (s *Store) UpdateMeta(_ context.Context, id uuid.UUID, title *string, startsAt, endsAt *time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	if title != nil {
		sess.Title = *title
	}
	if startsAt != nil {
		sess.StartsAt = *startsAt
	}
	if endsAt != nil {
		sess.EndsAt = *endsAt
	}
	sess.UpdatedAt = s.now()
	return copySession(sess), nil
}

// Open transitions a session to open, enforcing the single-open invariant.
// Re-opening the already-open session restamps updated_at and succeeds.
func (s *Store) Open(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	for otherID, other := range s.sessions {
		if otherID != id && other.Status == models.StatusOpen {
			return nil, sessions.ErrAnotherOpen
		}
	}
	sess.Status = models.StatusOpen
	sess.ClosedAt = nil
	sess.UpdatedAt = s.now()
	return copySession(sess), nil
}

// Close transitions a session to closed from any status.
func (s *Store) Close(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	now := s.now()
	sess.Status = models.StatusClosed
	sess.ClosedAt = &now
	sess.UpdatedAt = now
	return copySession(sess), nil
}

// Delete removes a session and cascades to its positions and actions.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return sessions.ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.order, id)
	for key := range s.positions {
		if key.sessionID == id {
			delete(s.positions, key)
		}
	}
	kept := s.actions[:0]
	for _, a := range s.actions {
		if a.SessionID != id {
			kept = append(kept, a)
		}
	}
	s.actions = kept
	return nil
}

// --- votes.Store ---

// Cast atomically upserts the position and appends an action, mirroring the
// repository transaction. In daily-limit mode neither write survives when an
// action already exists for the same calendar day.
func (s *Store) Cast(_ context.Context, sessionID, userID uuid.UUID, value int, limit votes.DailyLimit) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	if limit.Enabled {
		loc, err := time.LoadLocation(limit.Zone)
		if err != nil {
			loc = time.UTC
		}
		today := now.In(loc).Format("2006-01-02")
		for _, a := range s.actions {
			if a.SessionID == sessionID && a.UserID == userID &&
				a.CreatedAt.In(loc).Format("2006-01-02") == today {
				return nil, votes.ErrRateLimited
			}
		}
	}

	key := positionKey{sessionID: sessionID, userID: userID}
	pos, ok := s.positions[key]
	if !ok {
		pos = &models.Position{SessionID: sessionID, UserID: userID, CreatedAt: now}
		s.positions[key] = pos
	}
	pos.Value = value
	pos.UpdatedAt = now

	s.nextActionID++
	s.actions = append(s.actions, models.Action{
		ID:        s.nextActionID,
		SessionID: sessionID,
		UserID:    userID,
		Value:     value,
		CreatedAt: now,
	})

	out := *pos
	return &out, nil
}

// GetPosition returns the user's position, or (nil, nil) when absent.
func (s *Store) GetPosition(_ context.Context, sessionID, userID uuid.UUID) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[positionKey{sessionID: sessionID, userID: userID}]
	if !ok {
		return nil, nil
	}
	out := *pos
	return &out, nil
}

// --- tally.Source ---

// SumPositions sums current position values and counts voters.
func (s *Store) SumPositions(_ context.Context, sessionID uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, voters := 0, 0
	for key, pos := range s.positions {
		if key.sessionID == sessionID {
			total += pos.Value
			voters++
		}
	}
	return total, voters, nil
}

// SumActions sums the whole action log and counts distinct users.
func (s *Store) SumActions(_ context.Context, sessionID uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	seen := make(map[uuid.UUID]struct{})
	for _, a := range s.actions {
		if a.SessionID == sessionID {
			total += a.Value
			seen[a.UserID] = struct{}{}
		}
	}
	return total, len(seen), nil
}

// ListActions returns actions with id > afterID in insertion order.
func (s *Store) ListActions(_ context.Context, sessionID uuid.UUID, afterID int64, limit int) ([]models.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Action
	for _, a := range s.actions {
		if a.SessionID == sessionID && a.ID > afterID {
			list = append(list, a)
			if len(list) == limit {
				break
			}
		}
	}
	return list, nil
}

// --- auth.UserStore ---

// GetByEmail returns a user by email.
func (s *Store) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// Create inserts a new user.
func (s *Store) Create(_ context.Context, email, passwordHash string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	u := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  passwordHash,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	out := *u
	return &out, nil
}

// --- settings store ---

// All returns every setting.
func (s *Store) All(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

// Set upserts a setting.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

// RegistrationsClosed reports whether the registration gate is closed.
func (s *Store) RegistrationsClosed(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[models.SettingRegistrationsClosed] == "true", nil
}

func copySession(s *models.Session) *models.Session {
	out := *s
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		out.ClosedAt = &t
	}
	return &out
}

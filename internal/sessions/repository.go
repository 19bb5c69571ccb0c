package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openvote/backend/internal/models"
)

const sessionColumns = `id, title, starts_at, ends_at, status, closed_at, created_at, updated_at`

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Title, &s.StartsAt, &s.EndsAt, &s.Status, &s.ClosedAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert creates a new session in scheduled status.
func (r *Repository) Insert(ctx context.Context, title string, startsAt, endsAt time.Time) (*models.Session, error) {
	const q = `INSERT INTO sessions (title, starts_at, ends_at) VALUES ($1, $2, $3)
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, title, startsAt, endsAt))
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, q, id))
}

// GetOpen returns the currently open session, or ErrNoOpenSession. A partial
// unique index keeps at most one row open; LIMIT 1 picks the newest should
// the store ever hold more.
func (r *Repository) GetOpen(ctx context.Context) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE status = 'open'
		ORDER BY updated_at DESC LIMIT 1`
	s, err := scanSession(r.pool.QueryRow(ctx, q))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoOpenSession
	}
	return s, err
}

// List returns all sessions ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Title, &s.StartsAt, &s.EndsAt, &s.Status, &s.ClosedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdateMeta applies a partial update to title/starts_at/ends_at; nil fields
// retain their prior value. Allowed in any status; votes are not touched.
func (r *Repository) UpdateMeta(ctx context.Context, id uuid.UUID, title *string, startsAt, endsAt *time.Time) (*models.Session, error) {
	const q = `UPDATE sessions SET
			title = COALESCE($2, title),
			starts_at = COALESCE($3, starts_at),
			ends_at = COALESCE($4, ends_at),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, id, title, startsAt, endsAt))
}

// Open transitions a session to open. The check-then-act against other open
// sessions is a single atomic UPDATE: the sessions_single_open partial
// unique index rejects a second open row, which maps to ErrAnotherOpen.
// Re-opening the session that is already open succeeds and re-stamps
// updated_at.
func (r *Repository) Open(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `UPDATE sessions SET status = 'open', closed_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAnotherOpen
		}
		return nil, err
	}
	return s, nil
}

// Close transitions a session to closed and stamps closed_at. Permitted from
// any status.
func (r *Repository) Close(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `UPDATE sessions SET status = 'closed', closed_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, id))
}

// Delete removes a session; positions and actions go with it via ON DELETE
// CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

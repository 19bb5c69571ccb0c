package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openvote/backend/internal/models"
)

// DailyLimit configures the one-action-per-calendar-day restriction. Zone is
// the IANA time zone in which the calendar day boundary is evaluated; it
// applies uniformly to all users.
type DailyLimit struct {
	Enabled bool
	Zone    string
}

// Repository handles position and action persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a votes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Cast durably records one vote: the position upsert and the action append
// happen in a single transaction, so a reader never observes one without the
// other. The upsert takes the row lock for (session, user), which serializes
// concurrent casts by the same user. In daily-limit mode the same-day check
// runs under that lock, before the action insert.
func (r *Repository) Cast(ctx context.Context, sessionID, userID uuid.UUID, value int, limit DailyLimit) (*models.Position, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cast: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsert = `INSERT INTO positions (session_id, user_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_id)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING session_id, user_id, value, created_at, updated_at`
	var p models.Position
	if err := tx.QueryRow(ctx, upsert, sessionID, userID, value).
		Scan(&p.SessionID, &p.UserID, &p.Value, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert position: %w", err)
	}

	if limit.Enabled {
		const sameDay = `SELECT EXISTS (
			SELECT 1 FROM actions
			WHERE session_id = $1 AND user_id = $2
			  AND (created_at AT TIME ZONE $3)::date = (NOW() AT TIME ZONE $3)::date)`
		var voted bool
		if err := tx.QueryRow(ctx, sameDay, sessionID, userID, limit.Zone).Scan(&voted); err != nil {
			return nil, fmt.Errorf("daily limit check: %w", err)
		}
		if voted {
			// rollback discards the position upsert as well
			return nil, ErrRateLimited
		}
	}

	const appendAction = `INSERT INTO actions (session_id, user_id, value) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, appendAction, sessionID, userID, value); err != nil {
		return nil, fmt.Errorf("append action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cast: %w", err)
	}
	return &p, nil
}

// GetPosition returns the user's current position in a session, or
// (nil, nil) when the user has not voted.
func (r *Repository) GetPosition(ctx context.Context, sessionID, userID uuid.UUID) (*models.Position, error) {
	const q = `SELECT session_id, user_id, value, created_at, updated_at
		FROM positions WHERE session_id = $1 AND user_id = $2`
	var p models.Position
	err := r.pool.QueryRow(ctx, q, sessionID, userID).
		Scan(&p.SessionID, &p.UserID, &p.Value, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

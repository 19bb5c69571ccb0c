package tally

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openvote/backend/internal/models"
)

// Repository implements Source against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tally repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SumPositions sums the current position values for a session; voters is the
// number of position rows (one per distinct user).
func (r *Repository) SumPositions(ctx context.Context, sessionID uuid.UUID) (int, int, error) {
	const q = `SELECT COALESCE(SUM(value), 0), COUNT(*) FROM positions WHERE session_id = $1`
	var total, voters int
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&total, &voters); err != nil {
		return 0, 0, err
	}
	return total, voters, nil
}

// SumActions sums every action value ever cast for a session; voters counts
// distinct users in the log.
func (r *Repository) SumActions(ctx context.Context, sessionID uuid.UUID) (int, int, error) {
	const q = `SELECT COALESCE(SUM(value), 0), COUNT(DISTINCT user_id) FROM actions WHERE session_id = $1`
	var total, voters int
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&total, &voters); err != nil {
		return 0, 0, err
	}
	return total, voters, nil
}

// ListActions returns actions for a session with id > afterID, ascending.
func (r *Repository) ListActions(ctx context.Context, sessionID uuid.UUID, afterID int64, limit int) ([]models.Action, error) {
	const q = `SELECT id, session_id, user_id, value, created_at FROM actions
		WHERE session_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, q, sessionID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Action
	for rows.Next() {
		var a models.Action
		if err := rows.Scan(&a.ID, &a.SessionID, &a.UserID, &a.Value, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

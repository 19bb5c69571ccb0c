package models

import (
	"time"

	"github.com/google/uuid"
)

// Position is a user's current stance in a session: one mutable row per
// (session, user), upserted on every cast. Value is -1, 0 (rescinded) or +1.
type Position struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Action is one immutable cast-vote event in the append-only log. The
// sequence of actions per session, ordered by ID, is the audit trail;
// positions are the last-action-per-user projection of it.
type Action struct {
	ID        int64     `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally is the aggregate result for a session. Mode records which semantics
// produced Total: "positions" (sum of current positions) or "actions" (sum
// over the whole action log). Voters counts distinct users with a position.
type Tally struct {
	SessionID uuid.UUID `json:"session_id"`
	Mode      string    `json:"mode"`
	Total     int       `json:"total"`
	Voters    int       `json:"voters"`
}

// ValidVoteValue reports whether v is an accepted vote value.
func ValidVoteValue(v int) bool {
	return v == -1 || v == 0 || v == 1
}

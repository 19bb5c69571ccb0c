package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a voting session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusOpen      SessionStatus = "open"
	StatusClosed    SessionStatus = "closed"
)

// Session is a time-boxed voting exercise. StartsAt/EndsAt are descriptive
// metadata; sessions are opened and closed by explicit admin action, never
// by a timer. At most one session is open at any instant.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	StartsAt  time.Time     `json:"starts_at"`
	EndsAt    time.Time     `json:"ends_at"`
	Status    SessionStatus `json:"status"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

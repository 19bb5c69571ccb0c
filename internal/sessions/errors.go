package sessions

import "errors"

var (
	// ErrNotFound is returned when the session id is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrAnotherOpen is returned when opening a session while a different
	// session is already open.
	ErrAnotherOpen = errors.New("another session is open")
	// ErrNoOpenSession is returned when no session is currently open.
	ErrNoOpenSession = errors.New("no session is open")
	// ErrMissingFields is returned when a create request omits title,
	// starts_at or ends_at.
	ErrMissingFields = errors.New("title, starts_at and ends_at are required")
)

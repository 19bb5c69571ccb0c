package votes

import "errors"

var (
	// ErrInvalidValue is returned for vote values outside {-1, 0, +1}.
	ErrInvalidValue = errors.New("vote value must be -1, 0 or 1")
	// ErrRateLimited is returned in daily-limit mode when the user already
	// cast an action for the session on the same calendar day.
	ErrRateLimited = errors.New("already voted today")
)

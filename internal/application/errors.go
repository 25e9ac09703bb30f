package application

import "errors"

// Closed set of domain failures. The HTTP boundary matches these
// exhaustively with errors.Is; anything else is treated as an
// unclassified persistence failure and never surfaced verbatim.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyTaken = errors.New("email already taken")
	ErrInvalidPassword   = errors.New("invalid password")
)

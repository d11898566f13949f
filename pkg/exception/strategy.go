package exception

import "errors"

// Strategy errors
var (
	ErrEntryRejected    = errors.New("strategy: entry order rejected")
	ErrEntryTimeout     = errors.New("strategy: entry order not filled in time")
	ErrLegVanished      = errors.New("strategy: leg left the book without filling")
	ErrSessionClosed    = errors.New("strategy: session already closed")
	ErrSessionNotActive = errors.New("strategy: session is not running")
)

// Session controller errors
var (
	ErrInvalidDirection = errors.New("session: direction must be long or short")
	ErrInvalidParams    = errors.New("session: invalid parameters")
	ErrNotConfirmed     = errors.New("session: operator did not confirm")
	ErrRiskDenied       = errors.New("session: denied by risk check")
	ErrDuplicateSymbol  = errors.New("session: symbol already has a session")
)

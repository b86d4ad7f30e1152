package registry

import "errors"

var (
	ErrTooManySessions = errors.New("too many sessions")
	ErrDuplicateID     = errors.New("session id already registered")
	ErrNotRegistered   = errors.New("session not registered")
	ErrNoSender        = errors.New("session has no sender")
)

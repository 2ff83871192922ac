package session

import "errors"

var (
	// ErrConfig is returned for invalid session configuration.
	ErrConfig = errors.New("invalid session config")
)

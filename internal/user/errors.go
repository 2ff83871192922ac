package user

import "errors"

var (
	// ErrNotFound reports a lookup that matched no account.
	ErrNotFound = errors.New("user: not found")

	// ErrUsernameTaken reports a create/update that collided with an
	// existing username.
	ErrUsernameTaken = errors.New("user: username taken")

	// ErrBadCredentials covers every sign-in failure: unknown username,
	// wrong password, or an account that is not active. One sentinel so
	// callers cannot enumerate accounts.
	ErrBadCredentials = errors.New("user: bad credentials")

	// ErrInvalidInput reports a request that failed validation before
	// touching the store.
	ErrInvalidInput = errors.New("user: invalid input")
)

package auth

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (stable for errors.Is and for mapping to transport
// status codes).
var (
	// ErrAccessDenied is the authorization-level rejection. It surfaces
	// verbatim: as a 403 body on HTTP, as a close frame on websockets.
	ErrAccessDenied = errors.New("access denied")

	// ErrUserNotFound is returned by a UserDirectory when the token subject
	// no longer exists. During rotation it collapses to the guest identity.
	ErrUserNotFound = errors.New("user not found")
)

// AccessDeniedError carries a human-readable reason alongside the sentinel.
type AccessDeniedError struct {
	Reason string
}

func (e AccessDeniedError) Error() string {
	if e.Reason == "" {
		return ErrAccessDenied.Error()
	}
	return fmt.Sprintf("%v: %s", ErrAccessDenied, e.Reason)
}

func (e AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// Denied builds an AccessDeniedError with the given reason.
func Denied(reason string) error {
	return AccessDeniedError{Reason: reason}
}

// DeniedReason extracts the human-readable reason from an access-denied
// error, falling back to the bare sentinel text.
func DeniedReason(err error) string {
	var ad AccessDeniedError
	if errors.As(err, &ad) && ad.Reason != "" {
		return ad.Reason
	}
	return ErrAccessDenied.Error()
}

// Package user holds the account model, its persistence, and the
// application service that gates every account operation behind the
// shared authorization policy.
package user

import (
	"time"

	"pulse/internal/auth"
)

// User is the persisted account record. PasswordHash is the PHC-encoded
// argon2id hash and never leaves the package through the API layer.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         auth.Role
	State        auth.State
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

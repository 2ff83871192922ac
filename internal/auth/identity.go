package auth

import "time"

// Role is the ordered authorization level of an account.
type Role int

const (
	// RoleBanned accounts keep their credentials but lose all capabilities.
	RoleBanned Role = 1
	// RoleUser is a regular account.
	RoleUser Role = 2
	// RoleAdmin is the top of the ordering.
	RoleAdmin Role = 3
	// RoleGuest marks unauthenticated and transitional principals.
	RoleGuest Role = 4
)

// String implements fmt.Stringer for logs.
func (r Role) String() string {
	switch r {
	case RoleBanned:
		return "banned"
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleGuest:
		return "guest"
	default:
		return "unknown"
	}
}

// Valid reports whether the value is a known role.
func (r Role) Valid() bool {
	return r >= RoleBanned && r <= RoleGuest
}

// State is the account lifecycle state.
type State int

const (
	// StateNotConfirmed is a created but unverified account.
	StateNotConfirmed State = 1
	// StateActive is a usable account.
	StateActive State = 2
	// StateDeleted is a tombstoned account.
	StateDeleted State = 3
)

// String implements fmt.Stringer for logs.
func (s State) String() string {
	switch s {
	case StateNotConfirmed:
		return "not_confirmed"
	case StateActive:
		return "active"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Valid reports whether the value is a known state.
func (s State) Valid() bool {
	return s >= StateNotConfirmed && s <= StateDeleted
}

// Identity is the resolved principal for one request or connection.
// It is built once per request and never mutated; rotation produces a new
// Identity before the handler runs.
type Identity struct {
	ID       int64
	Username string
	Role     Role
	State    State

	// Authenticated is the credential marker consumed by authorization
	// checks downstream. The guest identity carries false.
	Authenticated bool

	// AccessExpiresAt is set only for guest/transitional principals; it is
	// the handle the connection registry uses to cut off a channel whose
	// credential has lapsed. Zero for full accounts.
	AccessExpiresAt time.Time
}

// Guest returns the unauthenticated identity.
func Guest() Identity {
	return Identity{Role: RoleGuest}
}

// Expired reports whether the identity carries an expiry that has passed.
// Identities without an expiry never expire.
func (i Identity) Expired(now time.Time) bool {
	return !i.AccessExpiresAt.IsZero() && now.After(i.AccessExpiresAt)
}

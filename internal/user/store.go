package user

import "context"

// Store is the persistence boundary for accounts. Implementations map
// their backend's "no row" and uniqueness failures to ErrNotFound and
// ErrUsernameTaken; everything else is an infrastructure error.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	ByID(ctx context.Context, id int64) (User, error)
	ByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error

	// CountAdmins backs the first-run bootstrap gate.
	CountAdmins(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
}

package user

import (
	"context"
	"errors"

	"pulse/internal/auth"
)

// Directory adapts a Store to the lookup interface the auth manager
// consults during token rotation.
type Directory struct {
	store Store
}

// NewDirectory wraps a store for the auth layer.
func NewDirectory(store Store) Directory {
	return Directory{store: store}
}

func (d Directory) FindUserByID(ctx context.Context, id int64) (auth.UserRecord, error) {
	u, err := d.store.ByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return auth.UserRecord{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.UserRecord{}, err
	}
	return auth.UserRecord{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		State:    u.State,
	}, nil
}

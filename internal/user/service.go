package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pulse/internal/auth"
)

// Service implements the account operations. Every method takes the
// caller's Identity and runs the policy gate before touching the store,
// so authorization lives in one place per operation.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService wires the account service.
func NewService(log *slog.Logger, store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("user: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}, nil
}

// UpdateInput carries a partial account update; nil fields are left
// untouched.
type UpdateInput struct {
	ID       int64
	Username *string
	Password *string
	Role     *auth.Role
	State    *auth.State
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, who auth.Identity) (User, error) {
	if err := auth.Require(who, auth.StateActive, auth.RoleUser, auth.RoleAdmin); err != nil {
		return User{}, err
	}
	return s.store.ByID(ctx, who.ID)
}

// Get returns an account by id. Any active user may look up an account;
// how much of it is shown is the transport layer's concern.
func (s *Service) Get(ctx context.Context, who auth.Identity, id int64) (User, error) {
	if err := auth.Require(who, auth.StateActive, auth.RoleUser, auth.RoleAdmin); err != nil {
		return User{}, err
	}
	return s.store.ByID(ctx, id)
}

// Update applies a partial update. Non-admins may only update their own
// account and may never touch role or state.
func (s *Service) Update(ctx context.Context, who auth.Identity, in UpdateInput) (User, error) {
	if err := auth.Require(who, auth.StateActive, auth.RoleUser, auth.RoleAdmin); err != nil {
		return User{}, err
	}
	if who.Role != auth.RoleAdmin {
		if in.ID != who.ID {
			return User{}, auth.Denied("user has no access")
		}
		if in.Role != nil || in.State != nil {
			return User{}, auth.Denied("user has no access")
		}
	}

	u, err := s.store.ByID(ctx, in.ID)
	if err != nil {
		return User{}, err
	}

	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return User{}, fmt.Errorf("%w: empty username", ErrInvalidInput)
		}
		u.Username = name
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password, DefaultArgon2idParams())
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = hash
	}
	if in.Role != nil {
		if !in.Role.Valid() || *in.Role == auth.RoleGuest {
			return User{}, fmt.Errorf("%w: invalid role", ErrInvalidInput)
		}
		u.Role = *in.Role
	}
	if in.State != nil {
		if !in.State.Valid() {
			return User{}, fmt.Errorf("%w: invalid state", ErrInvalidInput)
		}
		u.State = *in.State
	}

	updated, err := s.store.Update(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.log.Info("user.update", "user_id", updated.ID, "by", who.ID)
	return updated, nil
}

// Delete removes an account. Admin only, and never the admin's own.
func (s *Service) Delete(ctx context.Context, who auth.Identity, id int64) error {
	if err := auth.Require(who, auth.StateActive, auth.RoleAdmin); err != nil {
		return err
	}
	if id == who.ID {
		return auth.Denied("admin cannot delete itself")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("user.delete", "user_id", id, "by", who.ID)
	return nil
}

// CreateStart performs the first-run bootstrap: it creates the initial
// active admin account, and only while no admin exists yet.
func (s *Service) CreateStart(ctx context.Context, who auth.Identity, username, password string) (User, error) {
	if err := auth.RequireUnauthenticated(who); err != nil {
		return User{}, err
	}

	admins, err := s.store.CountAdmins(ctx)
	if err != nil {
		return User{}, err
	}
	if admins > 0 {
		return User{}, auth.Denied("start user already exists")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("%w: empty username", ErrInvalidInput)
	}
	hash, err := HashPassword(password, DefaultArgon2idParams())
	if err != nil {
		return User{}, err
	}

	created, err := s.store.Create(ctx, User{
		Username:     username,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		State:        auth.StateActive,
	})
	if err != nil {
		return User{}, err
	}
	s.log.Info("user.bootstrap", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// VerifyCredentials resolves a sign-in attempt. Unknown usernames, wrong
// passwords, and non-active accounts all collapse into ErrBadCredentials.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (User, error) {
	u, err := s.store.ByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		// Burn a hash anyway so unknown usernames cost the same.
		_, _ = VerifyPassword(password, dummyHash)
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}

	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return User{}, ErrBadCredentials
	}
	if u.State != auth.StateActive {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

// dummyHash keeps the unknown-username path doing real argon2 work.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

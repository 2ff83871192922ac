package user

import (
	"context"
	"errors"
	"testing"

	"pulse/internal/auth"
)

func newServiceFixture(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(nil, store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func seed(t *testing.T, store *MemoryStore, username, password string, role auth.Role, state auth.State) User {
	t.Helper()
	hash, err := HashPassword(password, testParams)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u, err := store.Create(context.Background(), User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		State:        state,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func identityOf(u User) auth.Identity {
	return auth.Identity{
		ID:            u.ID,
		Username:      u.Username,
		Role:          u.Role,
		State:         u.State,
		Authenticated: true,
	}
}

func TestCreateStartOnlyWhileNoAdmin(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	created, err := svc.CreateStart(ctx, auth.Guest(), "root", "bootstrap-pass")
	if err != nil {
		t.Fatalf("CreateStart: %v", err)
	}
	if created.Role != auth.RoleAdmin || created.State != auth.StateActive {
		t.Fatalf("bootstrap account = %+v", created)
	}

	if _, err := svc.CreateStart(ctx, auth.Guest(), "root2", "bootstrap-pass"); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("second bootstrap err = %v, want access denied", err)
	}

	admin := identityOf(created)
	if _, err := svc.CreateStart(ctx, admin, "root3", "bootstrap-pass"); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("authenticated bootstrap err = %v, want access denied", err)
	}
}

func TestMeAndGetRequireActiveAccount(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()

	alice := seed(t, store, "alice", "password-1", auth.RoleUser, auth.StateActive)
	pending := seed(t, store, "pending", "password-1", auth.RoleUser, auth.StateNotConfirmed)

	got, err := svc.Me(ctx, identityOf(alice))
	if err != nil || got.ID != alice.ID {
		t.Fatalf("Me = %+v, %v", got, err)
	}

	if _, err := svc.Me(ctx, auth.Guest()); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("guest Me err = %v", err)
	}
	if _, err := svc.Me(ctx, identityOf(pending)); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("not-confirmed Me err = %v", err)
	}

	if _, err := svc.Get(ctx, identityOf(alice), pending.ID); err != nil {
		t.Fatalf("Get by active user: %v", err)
	}
	if _, err := svc.Get(ctx, identityOf(alice), 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing err = %v", err)
	}
}

func TestUpdateOwnershipAndRoleGates(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()

	admin := seed(t, store, "admin", "password-1", auth.RoleAdmin, auth.StateActive)
	alice := seed(t, store, "alice", "password-1", auth.RoleUser, auth.StateActive)
	bob := seed(t, store, "bob", "password-1", auth.RoleUser, auth.StateActive)

	// Self-update of username is fine for a plain user.
	name := "alice2"
	got, err := svc.Update(ctx, identityOf(alice), UpdateInput{ID: alice.ID, Username: &name})
	if err != nil || got.Username != "alice2" {
		t.Fatalf("self update = %+v, %v", got, err)
	}

	// A plain user cannot touch someone else.
	if _, err := svc.Update(ctx, identityOf(alice), UpdateInput{ID: bob.ID, Username: &name}); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("cross-account update err = %v", err)
	}

	// A plain user cannot self-promote.
	role := auth.RoleAdmin
	if _, err := svc.Update(ctx, identityOf(alice), UpdateInput{ID: alice.ID, Role: &role}); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("self-promotion err = %v", err)
	}

	// Admin can change anyone's role and state.
	banned := auth.RoleBanned
	got, err = svc.Update(ctx, identityOf(admin), UpdateInput{ID: bob.ID, Role: &banned})
	if err != nil || got.Role != auth.RoleBanned {
		t.Fatalf("admin role update = %+v, %v", got, err)
	}

	// Guest is never a grantable role.
	guest := auth.RoleGuest
	if _, err := svc.Update(ctx, identityOf(admin), UpdateInput{ID: bob.ID, Role: &guest}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("guest role grant err = %v", err)
	}
}

func TestDeleteAdminOnlyAndNeverSelf(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()

	admin := seed(t, store, "admin", "password-1", auth.RoleAdmin, auth.StateActive)
	alice := seed(t, store, "alice", "password-1", auth.RoleUser, auth.StateActive)

	if err := svc.Delete(ctx, identityOf(alice), admin.ID); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("non-admin delete err = %v", err)
	}
	if err := svc.Delete(ctx, identityOf(admin), admin.ID); !errors.Is(err, auth.ErrAccessDenied) {
		t.Fatalf("self delete err = %v", err)
	}
	if err := svc.Delete(ctx, identityOf(admin), alice.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := store.ByID(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted account still present: %v", err)
	}
}

func TestVerifyCredentials(t *testing.T) {
	svc, store := newServiceFixture(t)
	ctx := context.Background()

	seed(t, store, "alice", "password-1", auth.RoleUser, auth.StateActive)
	seed(t, store, "banned", "password-1", auth.RoleBanned, auth.StateActive)
	seed(t, store, "pending", "password-1", auth.RoleUser, auth.StateNotConfirmed)

	if u, err := svc.VerifyCredentials(ctx, "alice", "password-1"); err != nil || u.Username != "alice" {
		t.Fatalf("valid sign-in = %+v, %v", u, err)
	}

	cases := []struct{ username, password string }{
		{"alice", "wrong"},
		{"nobody", "password-1"},
		{"pending", "password-1"},
	}
	for _, tc := range cases {
		if _, err := svc.VerifyCredentials(ctx, tc.username, tc.password); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("VerifyCredentials(%s) err = %v, want ErrBadCredentials", tc.username, err)
		}
	}

	// Banned accounts are role-gated later, but sign-in itself is allowed
	// while the account is active.
	if _, err := svc.VerifyCredentials(ctx, "banned", "password-1"); err != nil {
		t.Fatalf("banned sign-in err = %v", err)
	}
}

func TestDirectoryMapsNotFound(t *testing.T) {
	_, store := newServiceFixture(t)
	dir := NewDirectory(store)

	alice := seed(t, store, "alice", "password-1", auth.RoleUser, auth.StateActive)

	rec, err := dir.FindUserByID(context.Background(), alice.ID)
	if err != nil || rec.Username != "alice" || rec.Role != auth.RoleUser {
		t.Fatalf("FindUserByID = %+v, %v", rec, err)
	}

	if _, err := dir.FindUserByID(context.Background(), 9999); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("missing subject err = %v", err)
	}
}

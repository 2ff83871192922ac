package realtime

import (
	"testing"
	"time"

	"pulse/internal/auth"
)

func TestAdmit(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name string
		id   auth.Identity
		ok   bool
	}{
		{
			"active user",
			auth.Identity{ID: 1, Role: auth.RoleUser, State: auth.StateActive, Authenticated: true},
			true,
		},
		{
			"active admin",
			auth.Identity{ID: 2, Role: auth.RoleAdmin, State: auth.StateActive, Authenticated: true},
			true,
		},
		{
			"unexpired guest principal",
			auth.Identity{ID: 3, Role: auth.RoleGuest, Authenticated: true, AccessExpiresAt: now.Add(time.Minute)},
			true,
		},
		{
			"expired guest principal",
			auth.Identity{ID: 3, Role: auth.RoleGuest, Authenticated: true, AccessExpiresAt: now.Add(-time.Minute)},
			false,
		},
		{
			"anonymous",
			auth.Guest(),
			false,
		},
		{
			"banned",
			auth.Identity{ID: 4, Role: auth.RoleBanned, State: auth.StateActive, Authenticated: true},
			false,
		},
		{
			"not confirmed",
			auth.Identity{ID: 5, Role: auth.RoleUser, State: auth.StateNotConfirmed, Authenticated: true},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := admit(tc.id, now)
			if tc.ok && err != nil {
				t.Fatalf("admit() = %v, want nil", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("admit() = nil, want denial")
			}
		})
	}
}

func TestCloseStatusForHTTP(t *testing.T) {
	if got := CloseStatusForHTTP(403); got != 4403 {
		t.Fatalf("403 -> %d, want 4403", got)
	}
	if got := CloseStatusForHTTP(503); got != 4503 {
		t.Fatalf("503 -> %d, want 4503", got)
	}
}

package auth

// Require is the authorization gate invoked at the top of each protected
// operation: a pure function of (identity, required state, allowed roles).
// It replaces per-route ad-hoc checks so that every denial carries the same
// error kind and a stable reason.
func Require(id Identity, state State, roles ...Role) error {
	if !id.Authenticated {
		return Denied("user is not authenticated")
	}
	if id.State != state {
		return Denied("user has no access")
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return Denied("user has no access")
}

// RequireUnauthenticated gates operations that only make sense for callers
// without an account context (sign-in, first-run bootstrap).
func RequireUnauthenticated(id Identity) error {
	if id.Authenticated {
		return Denied("user is already authenticated")
	}
	return nil
}

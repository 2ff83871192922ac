// Package auth resolves an Identity for every inbound request from the
// access/refresh cookie pair and the server-side session record, rotating
// the pair transparently when the access token has gone stale.
//
// Token decode errors never escape this package: they collapse into the
// validity booleans driving the authentication state machine, and every
// failure path degrades to the guest identity rather than an error. Only
// infrastructure failures (session store or user directory unreachable)
// surface to the transport as server errors.
package auth

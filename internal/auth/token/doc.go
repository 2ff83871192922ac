// Package token signs and verifies the access/refresh token pair.
//
// Tokens are self-contained JWTs: signature and expiry are checked without
// any server-side lookup. Whether a refresh token is still the one
// authorized for its session is deliberately not this package's concern;
// that check lives in the session store.
package token

// Package session owns the server-side session record: the single refresh
// token value currently authorized for a session id, kept in Redis with a
// per-key TTL, plus the session-id cookie on the transport.
//
// The record is the sole defense against a stolen-but-superseded refresh
// token being replayed after rotation: rotation overwrites the key, it
// never appends.
package session

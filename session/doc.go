// Package session provides the Redis-backed admin session store.
//
// A session is created at login and its id (sid) is embedded in the issued
// tokens. The authentication guard calls [Store.Validate] on every request
// carrying a sid, so revoking a session invalidates its tokens even though
// their signatures remain valid.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It does NOT
// interpret tokens or make authentication decisions; those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import adminauth or jwt (no upward imports).
//   - Store plaintext secrets in [Session] fields.
package session

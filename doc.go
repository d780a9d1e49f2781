// Package adminauth authenticates operators of an administrative surface and
// issues the signed access and refresh tokens that carry that authentication
// between requests.
//
// An [Engine] is assembled once by [Builder.Build] from a [Config] and is
// safe for concurrent use afterwards. Build resolves key material, picks the
// signing algorithm from an ordered rule table and refuses to start with the
// built-in development secret unless APP_ENV names development or the
// operator opted in explicitly.
//
// # Credentials
//
// [Engine.ValidateCredentials] consults the [IdentityStore] first. An
// inactive or locked record never authenticates. When the store has no record,
// or cannot be reached, the environment-configured fallback identity is tried.
// Every rejection is [ErrInvalidCredentials]. Failed-attempt and last-login
// bookkeeping is best-effort and never changes the decision.
//
// # Tokens and sessions
//
// Access and refresh tokens carry a "typ" claim. [Engine.Authenticate] accepts
// access tokens only, and when a token names a session id the [SessionStore]
// must still hold that session. Signature, expiry, issuer and audience
// failures all surface as [ErrInvalidToken]; a missing session is
// [ErrSessionExpired]; a session backend failure wraps [ErrStoreUnavailable].
//
// # Architecture boundaries
//
// Credential and token orchestration lives in internal/flows as functions over
// dependency structs; this package wires them. The cookie, jwt, password and
// session packages hold the transport, signing, hashing and Redis session
// primitives. HTTP adapters live in middleware. Bundled identity stores live
// under stores/.
package adminauth

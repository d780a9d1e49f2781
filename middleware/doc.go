// Package middleware adapts an adminauth.Engine to net/http.
//
// # Guards
//
//   - [Guard] reads the token (bearer header first, then the auth cookie),
//     calls Engine.Authenticate and stores the claims in the request context.
//   - [RequireRole] and [RequireAdmin] check the role of an already
//     authenticated identity.
//
// Rejections are JSON bodies of the form {"error": "..."}: 401 for missing,
// invalid or expired credentials, 403 for a role mismatch, and 500 with
// "Authentication error" when the session backend fails. Internal error text
// is logged, never written to the response.
//
// This package makes no authentication decisions of its own. Token and
// session checks live in the Engine.
package middleware

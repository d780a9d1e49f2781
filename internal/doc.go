// Package internal contains helpers private to adminauth, currently session
// identifier generation.
//
// # Sub-packages
//
//   - audit: async audit event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for credential validation and token authentication
//   - limiters: account lockout policy applied by identity stores
//   - security: security posture report derived from a built engine
//
// # What this package must NOT do
//
//   - Export types that appear in the public adminauth API.
package internal

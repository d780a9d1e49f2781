// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunValidateCredentials, RunLogin, RunValidate, RunRefresh,
// RunLogout) accepts a typed dependency struct and returns a result value. The
// flows own no resources: identity store, session store, password hasher and
// token manager all stay with the Engine and are reached through func fields.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import adminauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows

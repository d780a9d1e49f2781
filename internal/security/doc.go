// Package security derives a security posture report from a built engine's
// signing, cookie, session and lockout settings.
package security

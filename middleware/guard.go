package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/MrEthical07/adminauth"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims attached by [Guard].
func ClaimsFromContext(ctx context.Context) (*adminauth.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*adminauth.TokenClaims)
	return claims, ok && claims != nil
}

// IdentityFromContext returns the authenticated identity attached by [Guard].
func IdentityFromContext(ctx context.Context) (adminauth.AdminIdentity, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return adminauth.AdminIdentity{}, false
	}
	return claims.Identity, true
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *adminauth.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard authenticates requests with the engine's cookie transport: a bearer
// header wins over the auth cookie. A valid access token whose session is
// still live passes the claims to next through the request context.
func Guard(engine *adminauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}
			metrics := engine.Metrics()

			token := engine.Transport().ReadToken(r)
			if token == "" {
				metrics.GuardRejected("missing")
				writeError(w, http.StatusUnauthorized, msgMissing)
				return
			}

			ctx := RequestContext(r)
			claims, err := engine.Authenticate(ctx, token)
			switch {
			case err == nil:
			case errors.Is(err, adminauth.ErrSessionExpired):
				metrics.GuardRejected("session_expired")
				writeError(w, http.StatusUnauthorized, msgSessionExpired)
				return
			case errors.Is(err, adminauth.ErrInvalidToken):
				metrics.GuardRejected("invalid_token")
				writeError(w, http.StatusUnauthorized, msgInvalidToken)
				return
			default:
				metrics.GuardRejected("internal")
				engine.Logger().Error(err, "authentication guard failed", "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

const (
	msgMissing        = "Authentication required"
	msgInvalidToken   = "Invalid or expired token"
	msgSessionExpired = "Session expired"
	msgForbidden      = "Insufficient permissions"
	msgInternal       = "Authentication error"
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes {"error": msg} with status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// RequestContext returns r's context carrying the client IP for audit
// events and session records.
func RequestContext(r *http.Request) context.Context {
	return adminauth.WithClientIP(r.Context(), clientIP(r))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

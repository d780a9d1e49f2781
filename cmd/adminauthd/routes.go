package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxLoginBody = 4 << 10

// newRouter mounts the auth endpoints. X-Forwarded-For and X-Real-IP are only
// honored when trustProxy is set; otherwise the peer address is the client IP
// recorded on sessions and audit events.
func newRouter(engine *adminauth.Engine, gatherer prometheus.Gatherer, trustProxy bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)

	h := &handlers{engine: engine}
	r.Route("/auth", func(auth chi.Router) {
		auth.Post("/login", h.login)
		auth.Post("/refresh", h.refresh)
		auth.Post("/logout", h.logout)
		auth.With(middleware.Guard(engine)).Get("/me", h.me)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

type handlers struct {
	engine *adminauth.Engine
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Identity    *adminauth.AdminIdentity `json:"identity,omitempty"`
	AccessToken string                   `json:"access_token"`
	ExpiresIn   int64                    `json:"expires_in"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.engine.Login(middleware.RequestContext(r), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, adminauth.ErrInvalidCredentials) {
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.engine.Logger().Error(err, "login failed", "username", req.Username)
		middleware.WriteError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	transport := h.engine.Transport()
	transport.WriteAuthCookie(w, res.AccessToken, res.AccessTTL)
	transport.WriteRefreshCookie(w, res.RefreshToken, res.RefreshTTL)
	writeJSON(w, http.StatusOK, tokenResponse{
		Identity:    &res.Identity,
		AccessToken: res.AccessToken,
		ExpiresIn:   int64(res.AccessTTL.Seconds()),
	})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	transport := h.engine.Transport()
	token := transport.ReadRefreshToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	access, claims, err := h.engine.Refresh(middleware.RequestContext(r), token)
	switch {
	case err == nil:
	case errors.Is(err, adminauth.ErrInvalidToken), errors.Is(err, adminauth.ErrSessionExpired):
		transport.ClearAuthCookies(w)
		middleware.WriteError(w, http.StatusUnauthorized, "Session expired")
		return
	default:
		h.engine.Logger().Error(err, "refresh failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	ttl := h.engine.Config().JWT.AccessTTL
	transport.WriteAuthCookie(w, access, ttl)
	writeJSON(w, http.StatusOK, tokenResponse{
		Identity:    &claims.Identity,
		AccessToken: access,
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// logout revokes the session behind whichever token the client still holds.
// The access cookie lapses with the access TTL, so the refresh cookie is the
// usual carrier of the session id after an idle period.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	transport := h.engine.Transport()
	candidates := []string{transport.ReadToken(r), transport.ReadRefreshToken(r)}
	transport.ClearAuthCookies(w)

	ctx := middleware.RequestContext(r)
	for _, token := range candidates {
		if token == "" {
			continue
		}
		err := h.engine.Logout(ctx, token)
		if err == nil {
			break
		}
		if !errors.Is(err, adminauth.ErrInvalidToken) {
			h.engine.Logger().Error(err, "logout failed")
			middleware.WriteError(w, http.StatusInternalServerError, "Authentication error")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity":   claims.Identity,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

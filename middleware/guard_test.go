package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guardFixture struct {
	engine   *adminauth.Engine
	sessions *session.Store
	redis    *miniredis.Miniredis
	registry *prometheus.Registry
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sessions := session.NewStore(rdb, "mw")

	cfg := adminauth.DefaultConfig()
	cfg.Environment = "development"
	cfg.JWT.Secret = "middleware-test-secret-0123456789abcdef"
	cfg.Audit.Enabled = false

	reg := prometheus.NewRegistry()
	e, err := adminauth.New().
		WithConfig(cfg).
		WithSessionStore(sessions).
		WithLogger(logr.Discard()).
		WithMetrics(reg).
		Build()
	require.NoError(t, err)
	t.Cleanup(e.Close)

	return &guardFixture{engine: e, sessions: sessions, redis: mr, registry: reg}
}

func (f *guardFixture) login(t *testing.T, role adminauth.Role) (string, string) {
	t.Helper()
	sess, err := f.sessions.Create(context.Background(), session.Session{Subject: "u-1", Username: "alice", Role: string(role)}, time.Hour)
	require.NoError(t, err)
	token, err := f.engine.IssueAccessToken(adminauth.AdminIdentity{ID: "u-1", Username: "alice", Role: role}, sess.SessionID)
	require.NoError(t, err)
	return token, sess.SessionID
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User", identity.Username)
		w.WriteHeader(http.StatusNoContent)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestGuardAcceptsBearerAndCookie(t *testing.T) {
	f := newGuardFixture(t)
	token, _ := f.login(t, adminauth.RoleAdmin)
	h := Guard(f.engine)(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-User"))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: f.engine.Transport().Name(), Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGuardRejections(t *testing.T) {
	f := newGuardFixture(t)
	token, sid := f.login(t, adminauth.RoleAdmin)
	refresh, err := f.engine.IssueRefreshToken(adminauth.AdminIdentity{ID: "u-1", Username: "alice", Role: adminauth.RoleAdmin}, sid)
	require.NoError(t, err)
	h := Guard(f.engine)(okHandler(t))

	serve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgMissing, decodeError(t, rec))

	rec = serve("not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidToken, decodeError(t, rec))

	rec = serve(refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidToken, decodeError(t, rec))

	require.NoError(t, f.sessions.Revoke(context.Background(), sid))
	rec = serve(token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgSessionExpired, decodeError(t, rec))

	count, err := testutil.GatherAndCount(f.registry, "adminauth_guard_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "missing, invalid_token and session_expired series")
}

func TestGuardBackendFailureIs500(t *testing.T) {
	f := newGuardFixture(t)
	token, _ := f.login(t, adminauth.RoleAdmin)
	f.redis.Close()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Guard(f.engine)(okHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternal, decodeError(t, rec))
}

func TestGuardNilEngine(t *testing.T) {
	rec := httptest.NewRecorder()
	Guard(nil)(okHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireRole(t *testing.T) {
	f := newGuardFixture(t)
	adminToken, _ := f.login(t, adminauth.RoleAdmin)
	viewerToken, _ := f.login(t, adminauth.RoleViewer)
	h := Guard(f.engine)(RequireAdmin()(okHandler(t)))

	for token, want := range map[string]int{
		adminToken:  http.StatusNoContent,
		viewerToken: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}

	rec := httptest.NewRecorder()
	RequireAdmin()(okHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientIPReachesContext(t *testing.T) {
	f := newGuardFixture(t)
	token, _ := f.login(t, adminauth.RoleAdmin)

	var claims *adminauth.TokenClaims
	h := Guard(f.engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = ClaimsFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, claims)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "198.51.100.7", clientIP(req))
}

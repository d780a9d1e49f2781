package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RefreshSuffix is appended to the primary cookie name for the refresh cookie.
const RefreshSuffix = "_refresh"

var (
	// ErrInvalidName is returned for an empty or malformed cookie name.
	ErrInvalidName = errors.New("invalid cookie name")
	// ErrInvalidSameSite is returned by [ParseSameSite] for unknown policies.
	ErrInvalidSameSite = errors.New("invalid samesite policy")
)

// Config describes the auth cookie pair.
type Config struct {
	Name            string
	Domain          string
	Path            string
	SameSite        http.SameSite
	Secure          bool
	DisableHTTPOnly bool
	// AccessMaxAge and RefreshMaxAge are used when a write passes no explicit
	// max-age. Zero produces a browser-session cookie.
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// Transport writes and reads the primary token cookie and its "_refresh"
// sibling. It is immutable and safe for concurrent use.
type Transport struct {
	cfg Config
}

// New validates cfg. SameSite=None always forces Secure.
func New(cfg Config) (*Transport, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" || strings.ContainsAny(cfg.Name, "=;, \t\r\n") {
		return nil, ErrInvalidName
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == http.SameSiteNoneMode {
		cfg.Secure = true
	}
	if cfg.AccessMaxAge < 0 || cfg.RefreshMaxAge < 0 {
		return nil, errors.New("cookie max-age must not be negative")
	}
	return &Transport{cfg: cfg}, nil
}

// Name returns the primary cookie name.
func (t *Transport) Name() string { return t.cfg.Name }

// Secure reports whether cookies carry the Secure attribute.
func (t *Transport) Secure() bool { return t.cfg.Secure }

// RefreshName returns the refresh cookie name.
func (t *Transport) RefreshName() string { return t.cfg.Name + RefreshSuffix }

// WriteAuthCookie sets the primary token cookie. maxAge <= 0 selects the
// configured default.
func (t *Transport) WriteAuthCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = t.cfg.AccessMaxAge
	}
	w.Header().Add("Set-Cookie", t.authCookie(token, seconds(maxAge)).String())
}

// WriteRefreshCookie sets the refresh token cookie. maxAge <= 0 selects the
// configured default.
func (t *Transport) WriteRefreshCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = t.cfg.RefreshMaxAge
	}
	w.Header().Add("Set-Cookie", t.refreshCookie(token, seconds(maxAge)).String())
}

// ClearAuthCookies re-issues both cookies empty with Max-Age=0.
func (t *Transport) ClearAuthCookies(w http.ResponseWriter) {
	w.Header().Add("Set-Cookie", t.authCookie("", -1).String())
	w.Header().Add("Set-Cookie", t.refreshCookie("", -1).String())
}

// ReadToken returns the access token from an "Authorization: Bearer" header,
// falling back to the primary cookie. It returns "" when neither is present.
func (t *Transport) ReadToken(r *http.Request) string {
	if token, ok := BearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ParseCookieHeader(strings.Join(r.Header.Values("Cookie"), "; "))[t.cfg.Name]
}

// ReadRefreshToken returns the refresh cookie value or "".
func (t *Transport) ReadRefreshToken(r *http.Request) string {
	return ParseCookieHeader(strings.Join(r.Header.Values("Cookie"), "; "))[t.RefreshName()]
}

// authCookie builds the primary cookie. maxAge follows http.Cookie: 0 omits
// Max-Age, negative emits Max-Age=0.
func (t *Transport) authCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.cfg.Name,
		Value:    url.PathEscape(value),
		Path:     t.cfg.Path,
		Domain:   t.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   t.cfg.Secure,
		HttpOnly: !t.cfg.DisableHTTPOnly,
		SameSite: t.cfg.SameSite,
	}
}

// refreshCookie is Lax unless the primary cookie is explicitly None.
func (t *Transport) refreshCookie(value string, maxAge int) *http.Cookie {
	c := t.authCookie(value, maxAge)
	c.Name = t.RefreshName()
	if t.cfg.SameSite != http.SameSiteNoneMode {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if s == 0 {
		s = 1
	}
	return s
}

// BearerToken extracts the credential from an Authorization header value.
// The scheme match is case-insensitive.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

// ParseCookieHeader splits a raw Cookie header into name/value pairs. Values
// are URL-decoded; undecodable values are kept verbatim. The first occurrence
// of a name wins.
func ParseCookieHeader(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		out[name] = value
	}
	return out
}

// ParseSameSite maps "strict", "lax", "none" (any case) to an http.SameSite.
// An empty string selects Lax.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSameSite, s)
	}
}

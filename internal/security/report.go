package security

import "time"

// Report summarizes the security posture of a built engine.
type Report struct {
	RuntimeMode       string
	ProductionMode    bool
	SigningAlgorithm  string
	SelectionRule     string
	AsymmetricSigning bool
	VerifyOnly        bool
	DevelopmentSecret bool
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	CookieSecure      bool
	CookieSameSite    string
	CookieHTTPOnly    bool
	SessionGateActive bool
	IdentityStore     bool
	FallbackDigest    bool
	DevPasswordActive bool
	LockoutActive     bool
	AuditEnabled      bool
	SelectionWarnings []string
	PostureWarnings   []string
}

// ReportInput is the raw state a Report is derived from.
type ReportInput struct {
	RuntimeMode       string
	ProductionMode    bool
	SigningAlgorithm  string
	SelectionRule     string
	Asymmetric        bool
	CanSign           bool
	DevelopmentSecret bool
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	CookieSecure      bool
	CookieSameSite    string
	CookieHTTPOnly    bool
	SessionStore      bool
	IdentityStore     bool
	FallbackDigest    bool
	DevPassword       bool
	LockoutThreshold  int
	LockoutDuration   time.Duration
	AuditEnabled      bool
	SelectionWarnings []string
}

// BuildReport derives a Report and its posture warnings from input.
func BuildReport(input ReportInput) Report {
	r := Report{
		RuntimeMode:       input.RuntimeMode,
		ProductionMode:    input.ProductionMode,
		SigningAlgorithm:  input.SigningAlgorithm,
		SelectionRule:     input.SelectionRule,
		AsymmetricSigning: input.Asymmetric,
		VerifyOnly:        !input.CanSign,
		DevelopmentSecret: input.DevelopmentSecret,
		AccessTTL:         input.AccessTTL,
		RefreshTTL:        input.RefreshTTL,
		CookieSecure:      input.CookieSecure,
		CookieSameSite:    input.CookieSameSite,
		CookieHTTPOnly:    input.CookieHTTPOnly,
		SessionGateActive: input.SessionStore,
		IdentityStore:     input.IdentityStore,
		FallbackDigest:    input.FallbackDigest,
		DevPasswordActive: input.DevPassword && !input.FallbackDigest && !input.ProductionMode,
		LockoutActive:     input.LockoutThreshold > 0 && input.LockoutDuration > 0,
		AuditEnabled:      input.AuditEnabled,
		SelectionWarnings: append([]string(nil), input.SelectionWarnings...),
	}

	warn := func(msg string) { r.PostureWarnings = append(r.PostureWarnings, msg) }
	if r.DevelopmentSecret {
		warn("tokens are signed with the built-in development secret")
	}
	if r.DevPasswordActive {
		warn("fallback identity accepts the development password")
	}
	if !r.CookieSecure && (r.ProductionMode || r.CookieSameSite == "none") {
		warn("auth cookies are sent without the Secure attribute")
	}
	if !r.CookieHTTPOnly {
		warn("auth cookies are readable from scripts")
	}
	if !r.SessionGateActive {
		warn("no session store: issued tokens cannot be revoked before expiry")
	}
	if r.IdentityStore && !r.LockoutActive {
		warn("account lockout is disabled")
	}
	return r
}

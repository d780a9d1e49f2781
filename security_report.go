package adminauth

import (
	"strings"

	"github.com/MrEthical07/adminauth/internal/security"
)

// SecurityReport is a snapshot of the engine's security posture.
type SecurityReport = security.Report

// SecurityReport derives the posture of the built engine. PostureWarnings
// lists settings an operator should review before serving production traffic.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return security.BuildReport(security.ReportInput{
		RuntimeMode:       cfg.Mode().String(),
		ProductionMode:    cfg.IsProduction(),
		SigningAlgorithm:  string(e.jwt.Algorithm()),
		SelectionRule:     e.signing.selection.Rule,
		Asymmetric:        e.jwt.Algorithm().IsAsymmetric(),
		CanSign:           e.jwt.CanSign(),
		DevelopmentSecret: e.signing.devSecret,
		AccessTTL:         cfg.JWT.AccessTTL,
		RefreshTTL:        cfg.JWT.RefreshTTL,
		CookieSecure:      e.transport.Secure(),
		CookieSameSite:    strings.ToLower(strings.TrimSpace(cfg.Cookie.SameSite)),
		CookieHTTPOnly:    cfg.Cookie.HTTPOnly,
		SessionStore:      e.sessions != nil,
		IdentityStore:     e.identities != nil,
		FallbackDigest:    cfg.Fallback.PasswordHash != "",
		DevPassword:       cfg.Fallback.DevPassword != "",
		LockoutThreshold:  cfg.Lockout.Threshold,
		LockoutDuration:   cfg.Lockout.Duration,
		AuditEnabled:      cfg.Audit.Enabled,
		SelectionWarnings: e.signing.selection.Warnings,
	})
}

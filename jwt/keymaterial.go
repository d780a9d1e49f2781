package jwt

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const pemMarker = "-----BEGIN"

// ResolveKeyMaterial normalizes a configured key string into material usable
// by the signing APIs.
//
// Escaped newlines ("\n" as two characters) become real newlines. PEM input is
// returned as-is; base64-wrapped PEM is unwrapped. Anything else is returned
// cleaned but otherwise unchanged. An empty result means no key was configured.
// The resolver never fails.
func ResolveKeyMaterial(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	cleaned = strings.ReplaceAll(cleaned, `\n`, "\n")
	if hasPEMMarker(cleaned) {
		return cleaned
	}

	if decoded, ok := decodeBase64(cleaned); ok && hasPEMMarker(decoded) {
		return strings.TrimSpace(decoded)
	}
	return cleaned
}

func hasPEMMarker(s string) bool {
	return strings.Contains(s, pemMarker) || strings.Contains(s, "-----END")
}

func decodeBase64(s string) (string, bool) {
	compact := strings.Join(strings.Fields(s), "")
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if out, err := enc.DecodeString(compact); err == nil {
			return string(out), true
		}
	}
	return "", false
}

func parseRSAPrivateKey(material string) (*rsa.PrivateKey, error) {
	if material == "" {
		return nil, errors.New("rsa private key not configured")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(material))
	if err != nil {
		return nil, errors.New("invalid rsa private key")
	}
	return key, nil
}

func parseRSAPublicKey(material string) (*rsa.PublicKey, error) {
	if material == "" {
		return nil, errors.New("rsa public key not configured")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(material))
	if err != nil {
		return nil, errors.New("invalid rsa public key")
	}
	return key, nil
}

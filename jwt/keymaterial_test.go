package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestResolveKeyMaterial(t *testing.T) {
	pemText := "-----BEGIN PUBLIC KEY-----\nMIIBIjAN\n-----END PUBLIC KEY-----"
	escaped := strings.ReplaceAll(pemText, "\n", `\n`)
	notPEM := base64.StdEncoding.EncodeToString([]byte("just a secret"))

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: " \t\n", want: ""},
		{name: "plain secret trimmed", in: "  s3cret  ", want: "s3cret"},
		{name: "pem passthrough", in: pemText, want: pemText},
		{name: "escaped newlines", in: escaped, want: pemText},
		{name: "base64 wrapped pem", in: base64.StdEncoding.EncodeToString([]byte(pemText)), want: pemText},
		{name: "base64 wrapped escaped pem stays escaped", in: base64.StdEncoding.EncodeToString([]byte(escaped)), want: escaped},
		{name: "base64 without pem returns input", in: notPEM, want: notPEM},
		{name: "invalid base64 returns input", in: "not*base64!", want: "not*base64!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveKeyMaterial(tc.in); got != tc.want {
				t.Fatalf("ResolveKeyMaterial(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolveKeyMaterialRealKeyParses(t *testing.T) {
	priv, pub := newRSAKeyPEM(t)

	wrapped := base64.StdEncoding.EncodeToString([]byte(priv))
	if _, err := parseRSAPrivateKey(ResolveKeyMaterial(wrapped)); err != nil {
		t.Fatalf("base64 wrapped private key should parse: %v", err)
	}

	escaped := strings.ReplaceAll(pub, "\n", `\n`)
	if _, err := parseRSAPublicKey(ResolveKeyMaterial(escaped)); err != nil {
		t.Fatalf("escaped public key should parse: %v", err)
	}
}

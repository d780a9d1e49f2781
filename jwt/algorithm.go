package jwt

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is a JWS signing algorithm name as it appears in the token header.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"

	// DefaultSymmetric is used whenever no usable asymmetric setup exists.
	DefaultSymmetric = HS512
	// DefaultAsymmetric is used when RSA keys exist but no algorithm was requested.
	DefaultAsymmetric = RS256
)

// IsAsymmetric reports whether a belongs to the RSA family (RSxxx, PSxxx).
func (a Algorithm) IsAsymmetric() bool {
	return strings.HasPrefix(string(a), "RS") || strings.HasPrefix(string(a), "PS")
}

// IsSymmetric reports whether a belongs to the HMAC family.
func (a Algorithm) IsSymmetric() bool {
	return strings.HasPrefix(string(a), "HS")
}

// Method returns the golang-jwt signing method for a.
func (a Algorithm) Method() jwt.SigningMethod {
	return jwt.GetSigningMethod(string(a))
}

func (a Algorithm) known() bool {
	switch a {
	case HS256, HS384, HS512, RS256, RS384, RS512, PS256, PS384, PS512:
		return true
	}
	return false
}

// AlgorithmInput is what the selector decides from. Key fields hold material
// already passed through [ResolveKeyMaterial].
type AlgorithmInput struct {
	Requested  string
	PrivateKey string
	PublicKey  string
	Secret     string
}

func (in AlgorithmInput) requested() Algorithm {
	return Algorithm(strings.ToUpper(strings.TrimSpace(in.Requested)))
}

func (in AlgorithmInput) hasAsymmetricKey() bool {
	if _, err := parseRSAPrivateKey(in.PrivateKey); err == nil {
		return true
	}
	_, err := parseRSAPublicKey(in.PublicKey)
	return err == nil
}

// AlgorithmRule is one step of the selection ladder. Rules are evaluated in
// order and the first one that applies wins.
type AlgorithmRule struct {
	Name    string
	Applies func(req Algorithm, in AlgorithmInput) bool
	Choose  func(req Algorithm, in AlgorithmInput) Algorithm
	Warn    func(req Algorithm, in AlgorithmInput) string
}

// AlgorithmRules is the selection ladder.
var AlgorithmRules = []AlgorithmRule{
	{
		Name: "asymmetric-without-keys",
		Applies: func(req Algorithm, in AlgorithmInput) bool {
			return req.IsAsymmetric() && !in.hasAsymmetricKey()
		},
		Choose: func(Algorithm, AlgorithmInput) Algorithm { return DefaultSymmetric },
		Warn: func(req Algorithm, _ AlgorithmInput) string {
			return fmt.Sprintf("%s requested but no RSA key material is configured; falling back to %s", req, DefaultSymmetric)
		},
	},
	{
		Name: "asymmetric-requested",
		Applies: func(req Algorithm, in AlgorithmInput) bool {
			return req.IsAsymmetric() && in.hasAsymmetricKey()
		},
		Choose: func(req Algorithm, _ AlgorithmInput) Algorithm { return req },
	},
	{
		Name: "asymmetric-default",
		Applies: func(req Algorithm, in AlgorithmInput) bool {
			return req == "" && in.hasAsymmetricKey()
		},
		Choose: func(Algorithm, AlgorithmInput) Algorithm { return DefaultAsymmetric },
	},
	{
		Name: "symmetric-requested",
		Applies: func(req Algorithm, _ AlgorithmInput) bool {
			return req.IsSymmetric()
		},
		Choose: func(req Algorithm, _ AlgorithmInput) Algorithm { return req },
	},
	{
		Name:    "symmetric-default",
		Applies: func(Algorithm, AlgorithmInput) bool { return true },
		Choose:  func(Algorithm, AlgorithmInput) Algorithm { return DefaultSymmetric },
		Warn: func(_ Algorithm, in AlgorithmInput) string {
			if in.Secret != "" {
				return ""
			}
			return fmt.Sprintf("no signing algorithm, RSA keys, or secret configured; defaulting to %s with the development secret", DefaultSymmetric)
		},
	},
}

// Selection is the selector's decision.
type Selection struct {
	Algorithm Algorithm
	Rule      string
	Warnings  []string
}

// SelectAlgorithm walks [AlgorithmRules] and returns the first decision.
// Unknown algorithm names are reported as a warning and treated as not
// requested.
func SelectAlgorithm(in AlgorithmInput) Selection {
	var warnings []string
	req := in.requested()
	if req != "" && !req.known() {
		warnings = append(warnings, fmt.Sprintf("unsupported signing algorithm %q ignored", in.Requested))
		req = ""
	}

	for _, rule := range AlgorithmRules {
		if !rule.Applies(req, in) {
			continue
		}
		if rule.Warn != nil {
			if msg := rule.Warn(req, in); msg != "" {
				warnings = append(warnings, msg)
			}
		}
		return Selection{Algorithm: rule.Choose(req, in), Rule: rule.Name, Warnings: warnings}
	}

	// unreachable: the last rule always applies
	return Selection{Algorithm: DefaultSymmetric, Rule: "symmetric-default", Warnings: warnings}
}

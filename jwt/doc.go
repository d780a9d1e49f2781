// Package jwt issues and verifies admin access and refresh tokens.
//
// It owns the three signing concerns of the admin surface: normalizing key
// material from configuration ([ResolveKeyMaterial]), choosing an algorithm
// from the ordered [AlgorithmRules] ladder ([SelectAlgorithm]), and signing
// or verifying tokens with strict issuer, audience and expiry checks
// ([Manager]).
//
// HMAC (HS256/384/512) and RSA (RS256/384/512, PS256/384/512) are supported.
package jwt

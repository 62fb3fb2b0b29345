package shim

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/imposter-project/contract-shim/internal/validation"
)

type (
	// SecurityVerifier decides whether a credential presented for a security scheme is acceptable.
	SecurityVerifier = validation.SecurityVerifier
	// Credential is the value a request presented for one security scheme.
	Credential = validation.Credential
	// VerifierFunc adapts a function to SecurityVerifier.
	VerifierFunc = validation.VerifierFunc
	// JWTOption configures a JWT verifier.
	JWTOption = validation.JWTOption
)

var (
	ErrMissingToken       = validation.ErrMissingToken
	ErrInsufficientScope  = validation.ErrInsufficientScope
	ErrInvalidCredentials = validation.ErrInvalidCredentials
)

// NewJWTVerifier verifies bearer tokens signed with keys returned by keyFunc. Only RSA and
// ECDSA algorithms are accepted unless WithAlgorithms says otherwise.
func NewJWTVerifier(keyFunc jwt.Keyfunc, opts ...JWTOption) SecurityVerifier {
	return validation.NewJWTVerifier(keyFunc, opts...)
}

// NewHMACVerifier verifies bearer tokens signed with a shared secret.
func NewHMACVerifier(secret []byte, opts ...JWTOption) SecurityVerifier {
	return validation.NewHMACVerifier(secret, opts...)
}

// NewBasicAuthVerifier verifies HTTP basic credentials against bcrypt hashes keyed by user.
func NewBasicAuthVerifier(users map[string]string) SecurityVerifier {
	return validation.NewBasicAuthVerifier(users)
}

// NewAPIKeyVerifier accepts any of the given keys.
func NewAPIKeyVerifier(keys ...string) SecurityVerifier {
	return validation.NewAPIKeyVerifier(keys...)
}

var (
	WithIssuer     = validation.WithIssuer
	WithAudience   = validation.WithAudience
	WithLeeway     = validation.WithLeeway
	WithAlgorithms = validation.WithAlgorithms
)

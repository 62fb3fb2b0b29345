package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken      = errors.New("missing bearer token")
	ErrInsufficientScope = errors.New("token does not grant the required scopes")
)

// Whitelisted signing algorithms. Tokens signed with anything else, including "none", are
// rejected before their signature is checked.
var defaultAlgorithms = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

var hmacAlgorithms = []string{"HS256", "HS384", "HS512"}

// JWTVerifier accepts bearer tokens that are validly signed, unexpired and, when configured,
// issued by the expected issuer for the expected audience. Scopes required by the operation must
// all appear in the token's "scope" (space separated) or "scp" (list) claim.
type JWTVerifier struct {
	keyFunc    jwt.Keyfunc
	algorithms []string
	issuer     string
	audience   string
	leeway     time.Duration
}

// JWTOption configures a JWTVerifier.
type JWTOption func(*JWTVerifier)

// WithIssuer requires the "iss" claim to match.
func WithIssuer(issuer string) JWTOption {
	return func(v *JWTVerifier) { v.issuer = issuer }
}

// WithAudience requires the "aud" claim to contain the audience.
func WithAudience(audience string) JWTOption {
	return func(v *JWTVerifier) { v.audience = audience }
}

// WithLeeway tolerates clock skew when checking time based claims.
func WithLeeway(leeway time.Duration) JWTOption {
	return func(v *JWTVerifier) { v.leeway = leeway }
}

// WithAlgorithms replaces the accepted signing algorithms.
func WithAlgorithms(algs ...string) JWTOption {
	return func(v *JWTVerifier) { v.algorithms = algs }
}

// NewJWTVerifier creates a verifier that obtains signing keys from keyFunc.
func NewJWTVerifier(keyFunc jwt.Keyfunc, opts ...JWTOption) *JWTVerifier {
	v := &JWTVerifier{
		keyFunc:    keyFunc,
		algorithms: defaultAlgorithms,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewHMACVerifier creates a verifier for tokens signed with a shared secret.
func NewHMACVerifier(secret []byte, opts ...JWTOption) *JWTVerifier {
	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}
	return NewJWTVerifier(keyFunc, append([]JWTOption{WithAlgorithms(hmacAlgorithms...)}, opts...)...)
}

func (v *JWTVerifier) Verify(_ context.Context, cred Credential) error {
	if cred.Value == "" {
		return ErrMissingToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(v.algorithms),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(parserOpts...).ParseWithClaims(cred.Value, claims, v.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("token expired: %w", err)
		}
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	if missing := missingScopes(tokenScopes(claims), cred.Scopes); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInsufficientScope, strings.Join(missing, ", "))
	}
	return nil
}

func tokenScopes(claims jwt.MapClaims) []string {
	if scope, ok := claims["scope"].(string); ok {
		return parseScopes(scope)
	}
	if scp, ok := claims["scp"].([]any); ok {
		scopes := make([]string, 0, len(scp))
		for _, s := range scp {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}
	return nil
}

// parseScopes parses a space-separated scope string into a slice.
func parseScopes(scopeStr string) []string {
	var scopes []string
	for _, part := range strings.Fields(scopeStr) {
		scopes = append(scopes, part)
	}
	return scopes
}

func missingScopes(granted []string, required []string) []string {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	var missing []string
	for _, s := range required {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

package validation

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("correct-horse-battery-staple")

func basicCredentials(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestSecurity_AlternativeRequirements(t *testing.T) {
	engine, idx := newTestEngine(t, Options{
		Verifiers: map[string]SecurityVerifier{
			"bearerAuth": NewHMACVerifier(testSecret),
			"basicAuth":  NewBasicAuthVerifier(map[string]string{"admin": bcryptHash(t, "s3cret")}),
		},
	})
	op := idx.Get("createPet")

	validToken := signToken(t, jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "pets:read pets:write",
	})
	readOnlyToken := signToken(t, jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "pets:read",
	})
	expiredToken := signToken(t, jwt.MapClaims{
		"exp":   time.Now().Add(-time.Hour).Unix(),
		"scope": "pets:write",
	})

	tests := []struct {
		name          string
		authorization string
		wantErr       bool
		wantCause     error
	}{
		{name: "bearer token with scope", authorization: "Bearer " + validToken},
		{name: "lower-case auth scheme", authorization: "bearer " + validToken},
		{name: "basic credentials satisfy the alternative", authorization: "Basic " + basicCredentials("admin", "s3cret")},
		{name: "no credentials", wantErr: true},
		{name: "wrong password", authorization: "Basic " + basicCredentials("admin", "guess"), wantErr: true, wantCause: ErrInvalidCredentials},
		{name: "missing scope", authorization: "Bearer " + readOnlyToken, wantErr: true, wantCause: ErrInsufficientScope},
		{name: "expired token", authorization: "Bearer " + expiredToken, wantErr: true, wantCause: jwt.ErrTokenExpired},
		{name: "garbage token", authorization: "Bearer not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{"Content-Type": "application/json"}
			if tt.authorization != "" {
				headers["Authorization"] = tt.authorization
			}
			err := engine.ValidateRequest(op, adapt(http.MethodPost, "/pets", `{"name":"rex"}`, headers, op.Path))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var secErr *shimerr.SecurityValidationError
			require.ErrorAs(t, err, &secErr)
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
				assert.Equal(t, secErr.Err.Error(), shimerr.Detail(err))
			}
		})
	}
}

func TestSecurity_AllSchemesOfARequirement(t *testing.T) {
	engine, idx := newTestEngine(t, Options{
		Verifiers: map[string]SecurityVerifier{
			"apiKey": NewAPIKeyVerifier("k1", "k2"),
		},
	})
	op := idx.Get("getPet")

	tests := []struct {
		name    string
		target  string
		apiKey  string
		wantErr bool
	}{
		{name: "both schemes present", target: "/pets/1?tenant=acme", apiKey: "k2"},
		{name: "tenant missing", target: "/pets/1", apiKey: "k1", wantErr: true},
		{name: "api key missing", target: "/pets/1?tenant=acme", wantErr: true},
		{name: "api key rejected", target: "/pets/1?tenant=acme", apiKey: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.apiKey != "" {
				headers["X-API-Key"] = tt.apiKey
			}
			err := engine.ValidateRequest(op, adapt(http.MethodGet, tt.target, "", headers, op.Path))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var secErr *shimerr.SecurityValidationError
			require.ErrorAs(t, err, &secErr)
			assert.NotEmpty(t, secErr.Violations)
		})
	}
}

func TestJWTVerifier_IssuerAndAudience(t *testing.T) {
	verifier := NewHMACVerifier(testSecret, WithIssuer("https://issuer.example.com"), WithAudience("petstore"), WithLeeway(time.Second))

	good := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
		"iss": "https://issuer.example.com",
		"aud": []string{"petstore"},
		"scp": []string{"pets:read"},
	})
	require.NoError(t, verifier.Verify(context.Background(), Credential{Value: good, Scopes: []string{"pets:read"}}))

	wrongAudience := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
		"iss": "https://issuer.example.com",
		"aud": "other",
	})
	assert.Error(t, verifier.Verify(context.Background(), Credential{Value: wrongAudience}))

	assert.ErrorIs(t, verifier.Verify(context.Background(), Credential{}), ErrMissingToken)
}

func TestJWTVerifier_RejectsUnlistedAlgorithm(t *testing.T) {
	// default verifiers only accept asymmetric algorithms
	verifier := NewJWTVerifier(func(*jwt.Token) (any, error) { return testSecret, nil })
	token := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})

	err := verifier.Verify(context.Background(), Credential{Value: token})
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable))
}

func TestJWTVerifier_RequiresExpiry(t *testing.T) {
	verifier := NewHMACVerifier(testSecret)
	token := signToken(t, jwt.MapClaims{"sub": "user"})
	assert.Error(t, verifier.Verify(context.Background(), Credential{Value: token}))
}

func TestBasicAuthVerifier(t *testing.T) {
	verifier := NewBasicAuthVerifier(map[string]string{"admin": bcryptHash(t, "s3cret")})

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid", value: basicCredentials("admin", "s3cret")},
		{name: "password containing a colon", value: basicCredentials("admin", "s3cret:extra"), wantErr: true},
		{name: "unknown user", value: basicCredentials("root", "s3cret"), wantErr: true},
		{name: "not base64", value: "%%%", wantErr: true},
		{name: "no separator", value: base64.StdEncoding.EncodeToString([]byte("admin")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(context.Background(), Credential{Value: tt.value})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifierFunc(t *testing.T) {
	called := false
	var v SecurityVerifier = VerifierFunc(func(_ context.Context, cred Credential) error {
		called = true
		assert.Equal(t, "apiKey", cred.Scheme)
		return nil
	})
	require.NoError(t, v.Verify(context.Background(), Credential{Scheme: "apiKey"}))
	assert.True(t, called)
}

func TestECMARegexEngine(t *testing.T) {
	re, err := ECMARegexEngine(`^(?!000)[0-9]{3}$`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("123"))
	assert.False(t, re.MatchString("000"))
	assert.Equal(t, `^(?!000)[0-9]{3}$`, re.String())

	_, err = ECMARegexEngine(`(unclosed`)
	assert.Error(t, err)
}

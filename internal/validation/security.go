package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/imposter-project/contract-shim/internal/exchange"
	"github.com/imposter-project/contract-shim/internal/operation"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Credential is what a request presented for one security scheme.
type Credential struct {
	// Scheme is the name of the security scheme in the contract's components.
	Scheme string
	// Type is the scheme type: apiKey, http, oauth2, openIdConnect or mutualTLS.
	Type string
	// Value is the raw credential with any authorization prefix removed.
	Value string
	// Scopes are the scopes the operation requires from this scheme.
	Scopes  []string
	Request *exchange.Request
}

// SecurityVerifier decides whether a presented credential is acceptable.
type SecurityVerifier interface {
	Verify(ctx context.Context, cred Credential) error
}

// VerifierFunc adapts a function to SecurityVerifier.
type VerifierFunc func(ctx context.Context, cred Credential) error

func (f VerifierFunc) Verify(ctx context.Context, cred Credential) error {
	return f(ctx, cred)
}

type securityEvaluator struct {
	schemes   map[string]*v3.SecurityScheme
	verifiers map[string]SecurityVerifier
}

func newSecurityEvaluator(model *v3.Document, verifiers map[string]SecurityVerifier) *securityEvaluator {
	schemes := make(map[string]*v3.SecurityScheme)
	if model.Components != nil && model.Components.SecuritySchemes != nil {
		for name, scheme := range model.Components.SecuritySchemes.FromOldest() {
			schemes[name] = scheme
		}
	}
	for name := range verifiers {
		if _, ok := schemes[name]; !ok {
			logger.Warnf("security verifier registered for unknown scheme %s", name)
		}
	}
	if verifiers == nil {
		verifiers = map[string]SecurityVerifier{}
	}
	return &securityEvaluator{schemes: schemes, verifiers: verifiers}
}

// evaluate succeeds when any one requirement is fully satisfied. Within a requirement every
// scheme must be present and, where a verifier is registered, accepted by it.
func (s *securityEvaluator) evaluate(op *operation.Operation, req *exchange.Request) error {
	if operation.IsOptional(op.Security) {
		return nil
	}

	var violations []shimerr.Violation
	var cause error
	for _, requirement := range op.Security {
		failures, err := s.satisfies(requirement, req)
		if len(failures) == 0 {
			return nil
		}
		violations = append(violations, failures...)
		if cause == nil && err != nil {
			cause = err
		}
	}

	logger.Debugf("security requirements for operation %s not met: %d violations", op.ID, len(violations))
	return &shimerr.SecurityValidationError{OperationID: op.ID, Violations: violations, Err: cause}
}

func (s *securityEvaluator) satisfies(requirement operation.SecurityRequirement, req *exchange.Request) ([]shimerr.Violation, error) {
	names := make([]string, 0, len(requirement))
	for name := range requirement {
		names = append(names, name)
	}
	sort.Strings(names)

	var violations []shimerr.Violation
	var cause error
	for _, name := range names {
		scheme, ok := s.schemes[name]
		if !ok || scheme == nil {
			violations = append(violations, securityViolation(fmt.Sprintf("security scheme %s is not defined", name)))
			continue
		}

		value, location, present := extractCredential(scheme, req)
		if !present {
			violations = append(violations, securityViolation(
				fmt.Sprintf("%s is required by security scheme %s", location, name)))
			continue
		}

		verifier, ok := s.verifiers[name]
		if !ok {
			continue
		}
		err := verifier.Verify(req.Context(), Credential{
			Scheme:  name,
			Type:    scheme.Type,
			Value:   value,
			Scopes:  requirement[name],
			Request: req,
		})
		if err != nil {
			violations = append(violations, securityViolation(
				fmt.Sprintf("credentials for security scheme %s were rejected: %v", name, err)))
			if cause == nil {
				cause = err
			}
		}
	}
	return violations, cause
}

func securityViolation(detail string) shimerr.Violation {
	return shimerr.Violation{Category: shimerr.CategorySecurity, Detail: detail}
}

// extractCredential finds the credential for a scheme. The returned description names where it
// was expected, for error messages.
func extractCredential(scheme *v3.SecurityScheme, req *exchange.Request) (string, string, bool) {
	params := req.Parameters
	switch strings.ToLower(scheme.Type) {
	case "apikey":
		switch strings.ToLower(scheme.In) {
		case "query":
			value := params.Query.Get(scheme.Name)
			return value, fmt.Sprintf("query parameter %s", scheme.Name), value != ""
		case "cookie":
			values := params.Cookie[scheme.Name]
			if len(values) == 0 || values[0] == "" {
				return "", fmt.Sprintf("cookie %s", scheme.Name), false
			}
			return values[0], fmt.Sprintf("cookie %s", scheme.Name), true
		default:
			value := params.Header.Get(scheme.Name)
			return value, fmt.Sprintf("header %s", scheme.Name), value != ""
		}
	case "http":
		authScheme := strings.ToLower(scheme.Scheme)
		if authScheme == "" {
			authScheme = "bearer"
		}
		return authorization(params.Header.Get("Authorization"), authScheme)
	case "oauth2", "openidconnect":
		return authorization(params.Header.Get("Authorization"), "bearer")
	default:
		// mutual TLS is established by the transport before the request reaches the shim
		return "", "", true
	}
}

func authorization(header string, authScheme string) (string, string, bool) {
	location := fmt.Sprintf("Authorization header with %s credentials", titleCase(authScheme))
	prefix, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(prefix, authScheme) {
		return "", location, false
	}
	value = strings.TrimSpace(value)
	return value, location, value != ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

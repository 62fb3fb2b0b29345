// Package validation checks requests and responses against the contract using
// libopenapi-validator, and enforces the contract's security requirements.
package validation

import (
	"net/http"

	"github.com/imposter-project/contract-shim/internal/contract"
	"github.com/imposter-project/contract-shim/internal/exchange"
	"github.com/imposter-project/contract-shim/internal/operation"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/pb33f/libopenapi-validator/config"
	"github.com/pb33f/libopenapi-validator/errors"
	"github.com/pb33f/libopenapi-validator/parameters"
	"github.com/pb33f/libopenapi-validator/requests"
	"github.com/pb33f/libopenapi-validator/responses"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// FormatFunc checks a value declared with a custom schema format.
type FormatFunc func(v any) error

// Options configures an Engine.
type Options struct {
	// CustomFormats are asserted in addition to the built-in formats.
	CustomFormats map[string]FormatFunc
	// ECMARegex evaluates schema patterns with ECMAScript semantics instead of RE2.
	ECMARegex bool
	// Verifiers check the credentials presented for a security scheme, by scheme name.
	Verifiers map[string]SecurityVerifier
}

// Engine validates exchanges for the operations of one contract. It is safe for concurrent use.
type Engine struct {
	params    parameters.ParameterValidator
	bodies    requests.RequestBodyValidator
	responses responses.ResponseBodyValidator
	security  *securityEvaluator
}

type pathItemCheck func(request *http.Request, pathItem *v3.PathItem, pathValue string) (bool, []*errors.ValidationError)

// NewEngine builds the validators for a contract.
func NewEngine(c *contract.Contract, opts Options) *Engine {
	validatorOpts := []config.Option{config.WithFormatAssertions()}
	for name, format := range opts.CustomFormats {
		validatorOpts = append(validatorOpts, config.WithCustomFormat(name, format))
	}
	if opts.ECMARegex {
		validatorOpts = append(validatorOpts, config.WithRegexEngine(ECMARegexEngine))
	}

	logger.Debugf("creating validation engine for %s with %d custom formats (ECMA regex: %t)",
		c.Title(), len(opts.CustomFormats), opts.ECMARegex)

	// Requests reach the engine with the server base path already removed, so the validators
	// must not strip it a second time.
	model := *c.Model
	model.Servers = nil

	return &Engine{
		params:    parameters.NewParameterValidator(&model, validatorOpts...),
		bodies:    requests.NewRequestBodyValidator(&model, validatorOpts...),
		responses: responses.NewResponseBodyValidator(&model, validatorOpts...),
		security:  newSecurityEvaluator(c.Model, opts.Verifiers),
	}
}

// ValidateRequest checks security first, then parameters and body. A security failure is
// reported as SecurityValidationError; everything else is aggregated into one
// RequestValidationError.
func (e *Engine) ValidateRequest(op *operation.Operation, req *exchange.Request) error {
	if err := e.security.evaluate(op, req); err != nil {
		return err
	}

	checks := []pathItemCheck{
		e.params.ValidatePathParamsWithPathItem,
		e.params.ValidateQueryParamsWithPathItem,
		e.params.ValidateHeaderParamsWithPathItem,
		e.params.ValidateCookieParamsWithPathItem,
		e.bodies.ValidateRequestBodyWithPathItem,
	}

	var violations []shimerr.Violation
	for _, check := range checks {
		valid, validationErrors := check(req.HTTPRequest(), op.PathItem, op.Path)
		if !valid {
			violations = append(violations, toViolations(validationErrors, false)...)
		}
	}
	if len(violations) == 0 {
		logger.Tracef("request for operation %s is valid", op.ID)
		return nil
	}

	for _, v := range violations {
		logger.Debugf("request validation error for operation %s: %s", op.ID, v)
	}
	return &shimerr.RequestValidationError{OperationID: op.ID, Violations: violations}
}

// ValidateResponse checks the status, media type, headers and body of a response produced for
// req. A failure means the service broke its contract.
func (e *Engine) ValidateResponse(op *operation.Operation, req *exchange.Request, resp *exchange.Response) error {
	httpReq := req.HTTPRequest()
	valid, validationErrors := e.responses.ValidateResponseBodyWithPathItem(
		httpReq, exchange.AdaptResponse(resp, httpReq), op.PathItem, op.Path)
	if valid {
		logger.Tracef("response for operation %s is valid", op.ID)
		return nil
	}

	violations := toViolations(validationErrors, true)
	if len(violations) == 0 {
		violations = []shimerr.Violation{{Category: shimerr.CategoryResponse, Detail: "response failed validation"}}
	}
	return &shimerr.ContractViolationError{
		OperationID: op.ID,
		Reason:      "response does not match the contract",
		Violations:  violations,
	}
}

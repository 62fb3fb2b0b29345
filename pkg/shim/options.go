package shim

import (
	"net/http"

	"github.com/imposter-project/contract-shim/internal/validation"
)

// Option configures an Application.
type Option func(*options)

type options struct {
	namespace   *Namespace
	caseFolding bool
	formats     map[string]validation.FormatFunc
	skipAll     bool
	skipIDs     []string
	translator  ErrorTranslator
	verifiers   map[string]validation.SecurityVerifier
	ecmaRegex   bool
	hooks       []StageHook
	middleware  []func(http.Handler) http.Handler
	perOp       []OperationMiddleware
}

func defaultOptions() *options {
	return &options{
		caseFolding: true,
		formats:     make(map[string]validation.FormatFunc),
		verifiers:   make(map[string]validation.SecurityVerifier),
	}
}

// WithNamespace binds every operation of the contract to a handler in ns at construction time.
// Construction fails with a ResolutionError when any operation has no handler.
func WithNamespace(ns *Namespace) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithCaseFolding controls whether camelCase operation identifiers also match snake_case
// handler names. It is enabled by default.
func WithCaseFolding(enabled bool) Option {
	return func(o *options) {
		o.caseFolding = enabled
	}
}

// WithCustomFormat asserts values of schemas declaring the named format.
func WithCustomFormat(name string, fn func(v any) error) Option {
	return func(o *options) {
		o.formats[name] = fn
	}
}

// WithSkipResponseValidation disables response validation for every operation.
func WithSkipResponseValidation() Option {
	return func(o *options) {
		o.skipAll = true
	}
}

// WithSkipResponseValidationFor disables response validation for the given operations. Either
// the contract identifier or its snake_case form may be used.
func WithSkipResponseValidationFor(ids ...string) Option {
	return func(o *options) {
		o.skipIDs = append(o.skipIDs, ids...)
	}
}

// WithErrorTranslator replaces the default error translator.
func WithErrorTranslator(fn ErrorTranslator) Option {
	return func(o *options) {
		o.translator = fn
	}
}

// WithSecurityVerifier checks the credentials presented for the named security scheme. Without
// a verifier a scheme is satisfied by the presence of its credential.
func WithSecurityVerifier(scheme string, verifier validation.SecurityVerifier) Option {
	return func(o *options) {
		o.verifiers[scheme] = verifier
	}
}

// WithECMARegex evaluates schema patterns with ECMAScript semantics.
func WithECMARegex() Option {
	return func(o *options) {
		o.ecmaRegex = true
	}
}

// WithStageHook registers a function observing the dispatch stages of every request.
func WithStageHook(hook StageHook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

// WithMiddleware wraps every route with the given middleware, outermost first.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// OperationMiddleware returns the middleware for one operation's routes, or nil for none.
type OperationMiddleware func(operationID string) func(http.Handler) http.Handler

// WithOperationMiddleware wraps the routes of each operation with the middleware fn returns
// for it. It runs inside the middleware given to WithMiddleware.
func WithOperationMiddleware(fn OperationMiddleware) Option {
	return func(o *options) {
		o.perOp = append(o.perOp, fn)
	}
}

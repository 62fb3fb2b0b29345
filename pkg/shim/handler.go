package shim

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"github.com/imposter-project/contract-shim/internal/exchange"
	"github.com/imposter-project/contract-shim/internal/resolver"
)

// Response is a transport response returned by handlers and error translators.
type Response = exchange.Response

// PathParams holds the values of the path template variables of the matched route.
type PathParams map[string]string

// HandlerFunc implements one contract operation. It receives the original request, with its
// body still readable, and the path parameters. It returns either a string-keyed map, sent as a
// JSON body with status 200, or a *Response sent as is.
type HandlerFunc func(r *http.Request, params PathParams) (any, error)

// Result is the outcome of a deferred handler.
type Result struct {
	Value any
	Err   error
}

// Async adapts a handler that completes in the background. The dispatcher waits for the first
// result on the channel, or for the request to be cancelled.
func Async(fn func(r *http.Request, params PathParams) <-chan Result) HandlerFunc {
	return func(r *http.Request, params PathParams) (any, error) {
		results := fn(r, params)
		if results == nil {
			return nil, fmt.Errorf("async handler returned no result channel")
		}
		select {
		case result, ok := <-results:
			if !ok {
				return nil, nil
			}
			return result.Value, result.Err
		case <-r.Context().Done():
			return nil, r.Context().Err()
		}
	}
}

// Namespace groups handlers by name so that operations can be bound by convention. Dotted
// operation identifiers select nested namespaces created with Child.
type Namespace = resolver.Namespace[HandlerFunc]

// NewNamespace creates an empty root namespace.
func NewNamespace() *Namespace {
	return resolver.NewNamespace[HandlerFunc]("")
}

// Endpoint is a handler registered by name. When Name is empty it is inferred from the name of
// the handler function.
type Endpoint struct {
	Name    string
	Handler HandlerFunc
}

// JSON builds a JSON response with the given status.
func JSON(status int, v any) (*Response, error) {
	return exchange.JSON(status, v)
}

// Text builds a plain text response.
func Text(status int, s string) *Response {
	return exchange.Text(status, s)
}

// NoContent builds a response without a body.
func NoContent(status int) *Response {
	return exchange.NoContent(status)
}

// functionName returns the declared name of a handler function, without its package or
// receiver. Anonymous functions have no usable name.
func functionName(h HandlerFunc) (string, error) {
	if h == nil {
		return "", fmt.Errorf("handler is nil")
	}
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "", fmt.Errorf("cannot determine handler name")
	}
	full := strings.TrimSuffix(fn.Name(), "-fm")
	name := full[strings.LastIndex(full, ".")+1:]
	if name == "" || isAnonymous(name) {
		return "", fmt.Errorf("cannot infer an operation id from anonymous function %s", full)
	}
	return name, nil
}

// isAnonymous matches the generated names of closures: "func1", "gowrap2", or a bare number for
// closures nested inside other closures.
func isAnonymous(name string) bool {
	for _, prefix := range []string{"func", "gowrap"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			name = rest
			break
		}
	}
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Package shim serves the operations of an OpenAPI 3 contract with user handlers, validating
// every request before its handler runs and every response before it is sent.
package shim

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/imposter-project/contract-shim/internal/contract"
	"github.com/imposter-project/contract-shim/internal/operation"
	"github.com/imposter-project/contract-shim/internal/resolver"
	"github.com/imposter-project/contract-shim/internal/validation"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/imposter-project/contract-shim/pkg/utils"
)

// Application binds the operations of a contract to handlers and serves them. The contract,
// operation index and validators never change after New; bindings may be added at any time
// and are published atomically, so serving never blocks on binding.
type Application struct {
	contract   *contract.Contract
	index      *operation.Index
	prefixes   []string
	engine     *validation.Engine
	opts       *options
	translator ErrorTranslator
	skip       map[string]struct{}

	mu      sync.Mutex
	routing atomic.Pointer[routing]
}

type binding struct {
	op      *operation.Operation
	name    string
	handler HandlerFunc
}

// routing is one immutable generation of the binding table and the router built from it.
type routing struct {
	bindings map[string]*binding
	router   *chi.Mux
	routes   []Route
}

// Route is one registration in the route table.
type Route struct {
	// Name is the operation identifier.
	Name    string
	Method  string
	Pattern string
}

// New builds an application serving c. When a namespace is configured, every operation is
// resolved and bound before New returns.
func New(c *contract.Contract, opts ...Option) (*Application, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	index, err := operation.Build(c)
	if err != nil {
		return nil, err
	}
	prefixes, err := c.ServerBasePaths()
	if err != nil {
		return nil, err
	}

	a := &Application{
		contract: c,
		index:    index,
		prefixes: prefixes,
		engine: validation.NewEngine(c, validation.Options{
			CustomFormats: o.formats,
			ECMARegex:     o.ecmaRegex,
			Verifiers:     o.verifiers,
		}),
		opts:       o,
		translator: o.translator,
		skip:       make(map[string]struct{}, len(o.skipIDs)),
	}
	for _, id := range o.skipIDs {
		if _, ok := a.lookup(id); !ok {
			logger.Warnf("response validation skip list names unknown operation %s", id)
		}
		a.skip[id] = struct{}{}
	}

	initial := map[string]*binding{}
	if o.namespace != nil {
		handlers, err := resolver.Resolve(o.namespace, index.IDs(), o.caseFolding)
		if err != nil {
			return nil, err
		}
		for id, h := range handlers {
			initial[id] = &binding{op: index.Get(id), name: id, handler: h}
		}
	}
	a.routing.Store(a.build(initial))

	logger.Infof("serving %d operations of %s under base paths %v (%d bound)",
		index.Len(), c.Title(), prefixes, len(initial))
	return a, nil
}

// NewFromFile loads the contract at path and builds an application from it. Relative external
// references are resolved against the directory of path.
func NewFromFile(path string, opts ...Option) (*Application, error) {
	c, err := contract.Load(path)
	if err != nil {
		return nil, err
	}
	return New(c, opts...)
}

// Contract returns the contract being served.
func (a *Application) Contract() *contract.Contract {
	return a.contract
}

// OperationIDs returns the identifiers of every contract operation, sorted.
func (a *Application) OperationIDs() []string {
	return a.index.IDs()
}

// Bound reports whether a handler is bound to the operation.
func (a *Application) Bound(id string) bool {
	op, ok := a.lookup(id)
	if !ok {
		return false
	}
	_, bound := a.routing.Load().bindings[op.ID]
	return bound
}

// Bind registers h for the operation. The identifier may be given in its snake_case form when
// case folding is enabled. Binding an operation again replaces the earlier handler.
func (a *Application) Bind(id string, h HandlerFunc) error {
	if h == nil {
		return &shimerr.ResolutionError{OperationID: id, Reason: "handler is nil"}
	}
	op, ok := a.lookup(id)
	if !ok {
		return &shimerr.UnknownOperationError{OperationID: id}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.routing.Load()
	if previous, ok := current.bindings[op.ID]; ok {
		logger.Warnf("operation %s was already bound as %s, replacing it with %s", op.ID, previous.name, id)
	}
	next := make(map[string]*binding, len(current.bindings)+1)
	for k, v := range current.bindings {
		next[k] = v
	}
	next[op.ID] = &binding{op: op, name: id, handler: h}
	a.routing.Store(a.build(next))

	logger.Debugf("bound operation %s", op)
	return nil
}

// Register binds an endpoint, inferring the operation identifier from the handler function's
// name when the endpoint has none.
func (a *Application) Register(e Endpoint) error {
	name := e.Name
	if name == "" {
		inferred, err := functionName(e.Handler)
		if err != nil {
			return &shimerr.ResolutionError{OperationID: "", Reason: err.Error()}
		}
		name = inferred
	}
	return a.Bind(name, e.Handler)
}

func (a *Application) lookup(id string) (*operation.Operation, bool) {
	if op := a.index.Get(id); op != nil {
		return op, true
	}
	if !a.opts.caseFolding {
		return nil, false
	}
	return a.index.Lookup(id)
}

// Routes returns the route table, ordered by operation identifier then pattern.
func (a *Application) Routes() []Route {
	routes := a.routing.Load().routes
	return append([]Route(nil), routes...)
}

// Handles reports whether a bound route matches the request's method and path.
func (a *Application) Handles(r *http.Request) bool {
	return a.routing.Load().router.Match(chi.NewRouteContext(), r.Method, r.URL.Path)
}

// ServeHTTP routes the request to the bound operation matching its method and path.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.routing.Load().router.ServeHTTP(w, r)
}

// build creates the router for one generation of bindings. Each bound operation is registered
// once per server base path.
func (a *Application) build(bindings map[string]*binding) *routing {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	for _, mw := range a.opts.middleware {
		router.Use(mw)
	}

	var routes []Route
	for _, id := range utils.SortedKeys(bindings) {
		b := bindings[id]
		var r chi.Router = router
		if mws := a.operationMiddleware(b.op.ID); len(mws) > 0 {
			r = router.With(mws...)
		}
		for _, prefix := range a.prefixes {
			pattern := prefix + b.op.Path
			r.Method(b.op.Method, pattern, a.endpoint(b, prefix))
			routes = append(routes, Route{Name: b.op.ID, Method: b.op.Method, Pattern: pattern})
		}
	}
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Name != routes[j].Name {
			return routes[i].Name < routes[j].Name
		}
		return routes[i].Pattern < routes[j].Pattern
	})

	return &routing{bindings: bindings, router: router, routes: routes}
}

func (a *Application) operationMiddleware(id string) []func(http.Handler) http.Handler {
	var mws []func(http.Handler) http.Handler
	for _, fn := range a.opts.perOp {
		if mw := fn(id); mw != nil {
			mws = append(mws, mw)
		}
	}
	return mws
}

// prefixFor returns the longest server base path that r's path falls under.
func (a *Application) prefixFor(path string) string {
	best := ""
	for _, prefix := range a.prefixes {
		if prefix == "" || len(prefix) <= len(best) {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			best = prefix
		}
	}
	return best
}

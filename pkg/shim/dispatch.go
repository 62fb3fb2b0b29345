package shim

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/imposter-project/contract-shim/internal/exchange"
	"github.com/imposter-project/contract-shim/internal/resolver"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
)

// IncidentHeader carries the identifier logged alongside a server-side failure.
const IncidentHeader = "X-Incident-Id"

// Dispatch runs the request through the validate, handle, validate pipeline of the operation
// and returns the response to send. Request and security validation failures are converted by
// the error translator and returned as responses. A ContractViolationError or HandlerError is
// returned as the error and means the service, not the client, is at fault.
func (a *Application) Dispatch(id string, r *http.Request) (*Response, error) {
	op, ok := a.lookup(id)
	if !ok {
		return nil, &shimerr.UnknownOperationError{OperationID: id}
	}
	b, ok := a.routing.Load().bindings[op.ID]
	if !ok {
		return nil, &shimerr.ResolutionError{OperationID: op.ID, Reason: "no handler is bound"}
	}
	return a.respond(b, a.prefixFor(r.URL.Path), r)
}

func (a *Application) endpoint(b *binding, prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := a.respond(b, prefix, r)
		if err != nil {
			writeServerFault(w, b.op.ID, err)
			return
		}
		resp.WriteTo(w)
	})
}

// respond runs the pipeline and translates client errors, so only server faults remain errors.
func (a *Application) respond(b *binding, prefix string, r *http.Request) (*Response, error) {
	resp, err := a.dispatch(b, prefix, r)
	if err != nil && !shimerr.IsServerFault(err) {
		return a.translate(r, err), nil
	}
	return resp, err
}

func (a *Application) dispatch(b *binding, prefix string, r *http.Request) (*Response, error) {
	op := b.op
	log := logger.Named("dispatch").With("operation", op.ID)
	report := a.reporter(op.ID, log)

	report(StageReceived)
	req := exchange.AdaptRequest(r, op.Path, prefix)

	report(StageRequestValidating)
	if err := a.engine.ValidateRequest(op, req); err != nil {
		report(StageRequestRejected)
		log.Debug("request rejected", "error", err)
		return nil, err
	}

	report(StageDispatching)
	params := PathParams(req.Parameters.Path)

	report(StageHandlerRunning)
	value, err := invoke(b.handler, r, params)
	if err != nil {
		report(StageHandlerFaulted)
		return nil, &shimerr.HandlerError{OperationID: op.ID, Err: err}
	}

	report(StageResponseCoercing)
	resp, err := coerce(op.ID, value)
	if err != nil {
		report(StageResponseRejected)
		return nil, err
	}

	if a.skipResponseValidation(b) {
		report(StageResponseSkipped)
	} else {
		report(StageResponseValidating)
		if err := a.engine.ValidateResponse(op, req, resp); err != nil {
			report(StageResponseRejected)
			return nil, err
		}
	}

	report(StageCompleted)
	return resp, nil
}

func (a *Application) reporter(id string, log hclog.Logger) func(Stage) {
	return func(stage Stage) {
		if log.IsTrace() {
			log.Trace("dispatch stage", "stage", stage.String())
		}
		for _, hook := range a.opts.hooks {
			hook(id, stage)
		}
	}
}

func (a *Application) skipResponseValidation(b *binding) bool {
	if a.opts.skipAll {
		return true
	}
	for _, candidate := range []string{b.op.ID, resolver.FoldCase(b.op.ID), b.name} {
		if _, ok := a.skip[candidate]; ok {
			return true
		}
	}
	return false
}

// invoke calls the handler, converting a panic into an error.
func invoke(h HandlerFunc, r *http.Request, params PathParams) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("handler panicked: %v\n%s", rec, debug.Stack())
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(r, params)
}

// coerce turns a handler result into a response. Only string-keyed maps and responses are
// accepted.
func coerce(id string, value any) (*Response, error) {
	switch v := value.(type) {
	case *Response:
		if v != nil {
			return v, nil
		}
	case Response:
		return &v, nil
	}

	if value != nil {
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			if rv.IsNil() {
				value = map[string]any{}
			}
			resp, err := JSON(http.StatusOK, value)
			if err != nil {
				return nil, &shimerr.ContractViolationError{OperationID: id, Reason: err.Error()}
			}
			return resp, nil
		}
	}

	return nil, &shimerr.ContractViolationError{
		OperationID: id,
		Reason:      fmt.Sprintf("handler returned unsupported type %T, expected a string-keyed map or *shim.Response", value),
	}
}

// writeServerFault logs err with a fresh incident id and sends an opaque 500.
func writeServerFault(w http.ResponseWriter, id string, err error) {
	incident := uuid.NewString()
	logger.Errorf("incident %s: operation %s failed: %v", incident, id, err)

	w.Header().Set(IncidentHeader, incident)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(http.StatusText(http.StatusInternalServerError)))
}

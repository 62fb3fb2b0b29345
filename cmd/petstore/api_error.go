package main

import (
	"errors"
	"net/http"

	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shim"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
)

const problemContentType = "application/problem+json"

// problem is the error body sent for rejected requests.
type problem struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// translators are the error translators a shim config may name.
var translators = map[string]shim.ErrorTranslator{
	"api_error": handleError,
}

// handleError reports validation failures as problem documents. Failures it does not recognise
// are left to the default translator.
func handleError(r *http.Request, err error) *shim.Response {
	var reqErr *shimerr.RequestValidationError
	var secErr *shimerr.SecurityValidationError
	if !errors.As(err, &reqErr) && !errors.As(err, &secErr) {
		return nil
	}

	status, code := shim.StatusFor(err)
	resp, encodeErr := shim.JSON(status, problem{
		Type:   r.URL.Path,
		Code:   code,
		Status: status,
		Detail: shimerr.Detail(err),
	})
	if encodeErr != nil {
		logger.Errorf("failed to encode problem: %v", encodeErr)
		return nil
	}
	return resp.WithHeader("Content-Type", problemContentType)
}

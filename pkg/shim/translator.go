package shim

import (
	"errors"
	"net/http"

	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
)

// Error codes used in the default error body.
const (
	CodeFormatError   = "FORMAT_ERROR"
	CodeSecurityError = "SECURITY_ERROR"
)

// ErrorTranslator converts a request or security validation failure into the response sent to
// the client. Returning nil defers to DefaultErrorTranslator.
type ErrorTranslator func(r *http.Request, err error) *Response

// ErrorBody is the JSON body produced by DefaultErrorTranslator.
type ErrorBody struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// DefaultErrorTranslator answers security failures with 403 SECURITY_ERROR and every other
// validation failure with 400 FORMAT_ERROR.
var DefaultErrorTranslator ErrorTranslator = defaultErrorTranslator

func defaultErrorTranslator(r *http.Request, err error) *Response {
	status, code := StatusFor(err)
	body := ErrorBody{
		Type:   r.URL.Path,
		Code:   code,
		Detail: shimerr.Detail(err),
	}
	resp, encodeErr := JSON(status, body)
	if encodeErr != nil {
		logger.Errorf("failed to encode error body: %v", encodeErr)
		return Text(status, body.Detail)
	}
	return resp
}

// StatusFor returns the status and error code the default translator uses for err.
func StatusFor(err error) (int, string) {
	var secErr *shimerr.SecurityValidationError
	if errors.As(err, &secErr) {
		return http.StatusForbidden, CodeSecurityError
	}
	return http.StatusBadRequest, CodeFormatError
}

func (a *Application) translate(r *http.Request, err error) *Response {
	if a.translator != nil {
		if resp := a.translator(r, err); resp != nil {
			return resp
		}
		logger.Debugf("custom error translator returned no response for %s, using the default", r.URL.Path)
	}
	return DefaultErrorTranslator(r, err)
}

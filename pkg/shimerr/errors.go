// Package shimerr holds the error types raised while building an application from a contract
// and while serving requests against it.
package shimerr

import (
	"errors"
	"fmt"
	"strings"
)

// Category is a machine-readable classification of a single contract violation.
type Category string

const (
	CategorySchema           Category = "schema"
	CategoryParameter        Category = "parameter"
	CategoryMissingParameter Category = "missing_parameter"
	CategoryMediaType        Category = "media_type"
	CategorySecurity         Category = "security"
	CategoryBody             Category = "body"
	CategoryResponse         Category = "response"
)

// Violation is one entry of an invalid validation outcome.
type Violation struct {
	Category Category `json:"category"`
	Detail   string   `json:"detail"`
	Location string   `json:"location,omitempty"`
}

func (v Violation) String() string {
	if v.Location != "" {
		return fmt.Sprintf("%s (%s): %s", v.Category, v.Location, v.Detail)
	}
	return fmt.Sprintf("%s: %s", v.Category, v.Detail)
}

func joinViolations(violations []Violation) string {
	details := make([]string, 0, len(violations))
	for _, v := range violations {
		details = append(details, v.Detail)
	}
	return strings.Join(details, "; ")
}

// ContractError reports a contract document that is internally inconsistent.
type ContractError struct {
	Source string
	Reason string
	Err    error
}

func (e *ContractError) Error() string {
	msg := "invalid contract"
	if e.Source != "" {
		msg += " " + e.Source
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// LoadError reports a contract file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load contract %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrUnknownExtension is wrapped by LoadError when a contract file is neither JSON nor YAML.
var ErrUnknownExtension = errors.New("unrecognised contract file extension")

// ResolutionError reports an operation whose handler cannot be located in a namespace.
type ResolutionError struct {
	OperationID string
	Target      string
	Reason      string
}

func (e *ResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot resolve handler for operation %s: %s", e.OperationID, e.Reason)
	}
	return fmt.Sprintf("cannot resolve handler for operation %s: the function `%s` does not exist", e.OperationID, e.Target)
}

// UnknownOperationError reports a binding request for an identifier absent from the contract.
type UnknownOperationError struct {
	OperationID string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operationId: %s", e.OperationID)
}

// RequestValidationError reports inbound data that violates the contract.
type RequestValidationError struct {
	OperationID string
	Violations  []Violation
	Err         error
}

func (e *RequestValidationError) Error() string {
	return joinViolations(e.Violations)
}

func (e *RequestValidationError) Unwrap() error {
	return e.Err
}

// SecurityValidationError reports a request that does not satisfy any of the security
// requirements declared for its operation.
type SecurityValidationError struct {
	OperationID string
	Violations  []Violation
	Err         error
}

func (e *SecurityValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "security requirements not met"
	}
	return joinViolations(e.Violations)
}

func (e *SecurityValidationError) Unwrap() error {
	return e.Err
}

// ContractViolationError reports the service itself breaking its contract: a handler returned an
// unsupported value, or the produced response failed validation.
type ContractViolationError struct {
	OperationID string
	Reason      string
	Violations  []Violation
}

func (e *ContractViolationError) Error() string {
	msg := fmt.Sprintf("operation %s violates its contract: %s", e.OperationID, e.Reason)
	if len(e.Violations) > 0 {
		msg += ": " + joinViolations(e.Violations)
	}
	return msg
}

// HandlerError wraps a failure raised by a bound handler.
type HandlerError struct {
	OperationID string
	Err         error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for operation %s failed: %v", e.OperationID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Detail returns the message used for client-facing error bodies: the wrapped cause when
// there is one, otherwise the error's own message.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	if cause := errors.Unwrap(err); cause != nil {
		return cause.Error()
	}
	return err.Error()
}

// IsServerFault reports whether err signals a defect in the service rather than in the request.
func IsServerFault(err error) bool {
	var cv *ContractViolationError
	var he *HandlerError
	return errors.As(err, &cv) || errors.As(err, &he)
}

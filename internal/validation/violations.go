package validation

import (
	"strings"

	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/pb33f/libopenapi-validator/errors"
)

// toViolations converts validator errors into violations, in the order they were reported.
func toViolations(validationErrors []*errors.ValidationError, response bool) []shimerr.Violation {
	violations := make([]shimerr.Violation, 0, len(validationErrors))
	for _, err := range validationErrors {
		if err == nil {
			continue
		}
		category := shimerr.CategoryResponse
		if !response {
			category = categorise(err)
		}
		violations = append(violations, shimerr.Violation{
			Category: category,
			Detail:   detail(err),
			Location: location(err),
		})
	}
	return violations
}

func categorise(err *errors.ValidationError) shimerr.Category {
	validationType := strings.ToLower(err.ValidationType)
	subType := strings.ToLower(err.ValidationSubType)
	message := strings.ToLower(err.Message)

	switch {
	case subType == "contenttype" || strings.Contains(message, "content type") || strings.Contains(message, "content-type"):
		return shimerr.CategoryMediaType
	case validationType == "security":
		return shimerr.CategorySecurity
	case isParameter(validationType, subType):
		if strings.Contains(message, "missing") || strings.Contains(message, "required") {
			return shimerr.CategoryMissingParameter
		}
		return shimerr.CategoryParameter
	case len(err.SchemaValidationErrors) > 0:
		return shimerr.CategorySchema
	default:
		return shimerr.CategoryBody
	}
}

func isParameter(validationType string, subType string) bool {
	if validationType == "parameter" {
		return true
	}
	switch subType {
	case "path", "query", "header", "cookie":
		return true
	}
	return false
}

func location(err *errors.ValidationError) string {
	switch sub := strings.ToLower(err.ValidationSubType); sub {
	case "path", "query", "header", "cookie":
		return sub
	}
	if strings.Contains(strings.ToLower(err.ValidationType), "body") || strings.Contains(strings.ToLower(err.ValidationType), "request") {
		return "body"
	}
	return ""
}

func detail(err *errors.ValidationError) string {
	msg := err.Message
	reasons := make([]string, 0, len(err.SchemaValidationErrors))
	for _, schemaErr := range err.SchemaValidationErrors {
		if schemaErr != nil && schemaErr.Reason != "" {
			reasons = append(reasons, schemaErr.Reason)
		}
	}
	if len(reasons) > 0 {
		return msg + ": " + strings.Join(reasons, "; ")
	}
	if err.Reason != "" && err.Reason != msg {
		return msg + ": " + err.Reason
	}
	return msg
}

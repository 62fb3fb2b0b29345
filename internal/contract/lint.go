package contract

import (
	"fmt"

	validator "github.com/pb33f/libopenapi-validator"
)

// Lint checks the document itself against the OpenAPI schema and returns a message per problem.
func (c *Contract) Lint() []string {
	v, errs := validator.NewValidator(c.Document)
	if errs != nil {
		return []string{fmt.Sprintf("cannot build document validator: %v", errs)}
	}

	valid, validationErrors := v.ValidateDocument()
	if valid {
		return nil
	}

	messages := make([]string, 0, len(validationErrors))
	for _, err := range validationErrors {
		msg := err.Message
		if err.Reason != "" {
			msg += ": " + err.Reason
		}
		for _, schemaErr := range err.SchemaValidationErrors {
			msg += fmt.Sprintf(" [%s]", schemaErr.Reason)
		}
		messages = append(messages, msg)
	}
	return messages
}

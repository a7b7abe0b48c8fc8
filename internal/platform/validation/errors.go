package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is the payload returned for a failed request validation.
type ErrorBody struct {
	Error string `json:"error"`
	// Fields maps each failing field (by JSON name) to the rule it broke.
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse converts a validator error into a structured response.
func ErrorResponse(err error) ErrorBody {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrorBody{Error: err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return ErrorBody{Error: "validation_failed", Fields: fields}
}

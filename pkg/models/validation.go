package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// GetValidator returns the package's singleton validator instance.
func GetValidator() *validator.Validate {
	return validate
}

// ValidateStruct validates s against its `validate` struct tags.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationError is one field-level validation failure, suitable for
// logging or attaching to a skipped-record report.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FormatValidationErrors converts a validator error into structured,
// loggable entries. Returns nil if err is not a validator.ValidationErrors.
func FormatValidationErrors(err error) []*ValidationError {
	var out []*ValidationError
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	for _, fe := range fieldErrors {
		out = append(out, &ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldErrorMessage(fe),
		})
	}
	return out
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

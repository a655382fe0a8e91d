// Package validation provides request validation for the admin API.
package validation

import (
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ruvnet/swimguard/internal/dto"
)

// Validator wraps the validator instance used across the admin API.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("hostport", validateHostPort)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// ValidateStruct validates a struct, returning a *ValidationError on failure.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors []dto.ValidationError
	for _, fe := range err.(validator.ValidationErrors) {
		validationErrors = append(validationErrors, dto.ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
		})
	}

	return &ValidationError{Errors: validationErrors}
}

// ValidateVar validates a single variable against a tag expression.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

// ValidationError represents one or more field validation failures.
type ValidationError struct {
	Errors []dto.ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}

	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}

	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "hostport":
		return "Must be a host:port address"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("Validation failed on '%s' tag", fe.Tag())
	}
}

// validateHostPort checks that a field is a syntactically valid "host:port"
// address, the form a dialable Node.Addr takes.
func validateHostPort(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	host, port, err := net.SplitHostPort(value)
	return err == nil && host != "" && port != ""
}

// Package validation wraps the validator/v10 library with conversion to
// the domain error taxonomy, for checking command input before any
// engine call.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/handlesync/handlesync-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Validate validates a struct and returns a domain validation error
// listing the offending fields.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// One message per failing field, first failure wins for the summary.
	msg := "invalid input"
	for _, e := range validationErrs {
		msg = fmt.Sprintf("%s %s", e.Field(), friendlyMessage(e))
		break
	}
	return domainerrors.Validation(msg)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

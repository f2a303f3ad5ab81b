// Package validate wraps go-playground/validator for request body checks.
package validate

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	cli *validator.Validate
}

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Struct validates s against its `validate` tags and returns one entry per
// failed field, or nil when the struct is valid.
func (v *Validator) Struct(s any) []FieldError {
	err := v.cli.Struct(s)
	if err == nil {
		return nil
	}

	out := make([]FieldError, 0)
	for _, fe := range err.(validator.ValidationErrors) {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return out
}

// Package validation checks user-entered annotation metadata with
// validator/v10 and turns failures into ValidationErrors the status banner
// can show as-is.
package validation

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/embiggen/planetmap/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator. Field names in messages come from the `label`
// struct tag, falling back to the Go field name.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("label"); name != "" {
			return name
		}
		return fld.Name
	})

	return &Validator{v: v}
}

// Validate validates a struct. The returned error's Message is the first
// failing field in declaration order; Details maps every failing field to its message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	details := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		details[e.Field()] = friendlyMessage(e)
	}
	first := friendlyMessage(validationErrs[0])

	return errors.Validation(first).WithDetails(details)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s points", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", e.Field(), e.Param())
	case "hexcolor":
		return e.Field() + " must be a hex colour"
	case "latitude", "longitude":
		return "Invalid coordinates"
	default:
		return e.Field() + " is invalid"
	}
}

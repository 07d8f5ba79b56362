// Package validator wraps go-playground/validator for request body
// validation, reporting failures by JSON field name.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator provides methods for struct validation using the
// underlying validator library.
type Validator struct {
	cli *validator.Validate
}

// ValidationError represents an error encountered during validation of
// a struct field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New initializes and returns a new Validator. Field names in errors
// follow the json tag when one is present.
func New() *Validator {
	cli := validator.New(validator.WithRequiredStructEnabled())
	cli.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{cli: cli}
}

func (v *Validator) formatError(err error) []ValidationError {
	var verrs validator.ValidationErrors
	errs := make([]ValidationError, 0)
	if !errors.As(err, &verrs) {
		return append(errs, ValidationError{Message: err.Error()})
	}
	for _, fe := range verrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: fe.Error(),
		})
	}
	return errs
}

// ValidateStruct validates the provided struct and returns a slice of
// validation errors, or nil when the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	if err := v.cli.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Validate checks a single value against the given validation tags.
func (v *Validator) Validate(value interface{}, tag string) []ValidationError {
	if err := v.cli.Var(value, tag); err != nil {
		return v.formatError(err)
	}
	return nil
}

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"blogicum/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field errors are keyed by the form field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return ValidateUsername(fl.Field().String()) == nil
	})
	mustRegister(v, "password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
	mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
		return ValidateSlug(fl.Field().String()) == nil
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Result is the outcome of validating an input struct. Exactly one of
// Value or Errors is meaningful: Errors is nil when the input is valid.
type Result[T any] struct {
	Value  T
	Errors models.FieldErrors
}

// OK reports whether the input passed validation.
func (r Result[T]) OK() bool {
	return len(r.Errors) == 0
}

// Err converts a failed result into a VALIDATION_ERROR AppError.
func (r Result[T]) Err() error {
	if r.OK() {
		return nil
	}
	return models.NewFieldValidationError(r.Errors)
}

// Check runs struct-tag validation over v.
func Check[T any](v T) Result[T] {
	err := validate.Struct(v)
	if err == nil {
		return Result[T]{Value: v}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result[T]{Errors: models.FieldErrors{"__all__": err.Error()}}
	}

	fields := models.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Field(), message(fe))
	}
	return Result[T]{Errors: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "username", "password", "slug":
		if err := ruleError(fe.Tag(), fe.Value()); err != nil {
			return capitalize(err.Error()) + "."
		}
	}
	return "Enter a valid value."
}

func ruleError(tag string, value interface{}) error {
	s, _ := value.(string)
	switch tag {
	case "username":
		return ValidateUsername(s)
	case "password":
		return ValidatePassword(s)
	case "slug":
		return ValidateSlug(s)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Package validate wraps go-playground/validator with readable error output.
package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a struct by its validate tags.
func Struct[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, validationErrorToString(value, err)
	}
	return value, nil
}

// Value validates a single value against a validator tag expression.
func Value(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return validationErrorToString(value, err)
	}
	return nil
}

func validationErrorToString(input any, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		msg := ""
		for _, fe := range verrs {
			msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.", input, fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
		}
		return errors.New(msg)
	}
	return err
}

package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseInto converts value to T via a JSON round trip. Values already of type T
// are returned as is.
func ParseInto[T any](value any) (T, error) {
	var result T

	if v, ok := value.(T); ok {
		return v, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return result, err
	}

	if err = json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("value %v is not a valid %T", value, result)
	}

	return result, nil
}

func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(value, err)
	}

	return value, nil
}

func ValidateValue(value any, tag string) error {
	err := validate.Var(value, tag)
	if err != nil {
		return ValidationErrorToString(value, err)
	}
	return nil
}

func ValidationErrorToString(input any, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msg := ""
		for _, fe := range verrs {
			msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.", input, fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
		}
		return errors.New(msg)
	}

	return err
}

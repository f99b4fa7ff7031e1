package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError describes a single rejected field of a decoded value.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is returned by Apply when one or more rules fail.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has at least one error.
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Rule is a single validation check.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Validator checks a decoded value; it is run by the JSON and YAML codecs after decoding.
type Validator[T any] func(value T) error

// Apply executes rules and returns ValidationErrors for every failing one, or nil.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IsValidationError reports whether err carries ValidationErrors.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// RequiredString validates that a string is not empty after trimming whitespace.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len(value) >= min },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters long", min)},
	}
}

func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// InRange validates that min <= value <= max.
func InRange[N int | int64 | float64](field string, value, min, max N) Rule {
	return Rule{
		Check: func() bool { return value >= min && value <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be between %v and %v", min, max)},
	}
}

func validate[T any](value T, validators []Validator[T]) error {
	for _, v := range validators {
		if v == nil {
			continue
		}
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

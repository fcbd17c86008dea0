package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and reports fields by their
// config key.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that names fields after their
// mapstructure tag.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("mapstructure"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return &Validator{validate: v}
}

// Validate validates a struct using its validate tags.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
// keyed by dotted config path.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf("%s failed validation: %s (value: '%v')",
			configKey(e.Namespace()), e.Tag(), e.Value()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// configKey drops the root struct name from a validator namespace.
func configKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

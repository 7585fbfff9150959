package structure

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance lazily builds the shared validator with the custom
// "impact" rule registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("impact", func(fl validator.FieldLevel) bool {
			return Impact(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate checks a decoded record against the provider contract.
//
// It accepts *Structure or *FeasibilityReport (or any struct carrying
// validate tags) and returns a single error naming every violated field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("structure: validate: %w", err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("structure: invalid record: %s", strings.Join(parts, "; "))
}

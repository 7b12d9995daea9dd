package validation

import (
	"reflect"

	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return gferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidateAtLeast validates that value is not below min. Capacities use it
// because their sentinels sit below zero.
func ValidateAtLeast(module, field string, value, min int) error {
	if value < min {
		return gferrors.NewValidationError(module, field, value, "out of range")
	}
	return nil
}

// ValidateNonNegativeFloat validates that a rate is not negative.
func ValidateNonNegativeFloat(module, field string, value float64) error {
	if value < 0 {
		return gferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 for no refill or a positive value")
	}
	return nil
}

// ValidateRequired validates that value is set. Nil pointers, funcs,
// channels, maps, slices and interfaces all count as missing, including
// typed nils stored in the interface.
func ValidateRequired(module, field string, value any) error {
	if isNil(value) {
		return gferrors.NewValidationError(module, field, nil, "is required").
			WithHint("provide a valid " + field)
	}
	return nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every entity validation error; callers test
// for it with errors.Is instead of matching individual messages.
var ErrValidation = errors.New("validation failed")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

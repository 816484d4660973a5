package redact

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the target row set is malformed.
// Nothing is scanned or rewritten when it is returned.
var ErrInvalidInput = errors.New("invalid input")

// InputError describes which row made the input invalid.
// errors.Is(err, ErrInvalidInput) holds for every InputError.
type InputError struct {
	Row    int // position of the offending row in the input slice
	Number int
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: row %d (number %d): %s", ErrInvalidInput, e.Row, e.Number, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

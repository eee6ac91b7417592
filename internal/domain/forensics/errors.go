package forensics

import (
	"errors"
	"fmt"
)

// Errors recorded on defaulted checks.
var (
	ErrNoContours = errors.New("no contours found")
	ErrZeroAmount = errors.New("zero amount")
	ErrPanic      = errors.New("check panicked")
)

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPanic, e.value)
}

func (e panicError) Unwrap() error {
	return ErrPanic
}

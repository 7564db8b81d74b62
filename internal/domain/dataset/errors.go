package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrType          = errors.New("column type mismatch")
	ErrEmptyInput    = errors.New("empty input")
	ErrInvalid       = errors.New("invalid dataset")
)

// MissingColumnError lists every required column absent from a schema.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

// Is makes errors.Is(err, ErrMissingColumn) hold.
func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// TypeError reports a column whose inferred kind is not the expected one.
type TypeError struct {
	Column string
	Want   Kind
	Got    Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: column %q is %s, want %s", ErrType, e.Column, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrType) hold.
func (e *TypeError) Is(target error) bool { return target == ErrType }

package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable marks every load failure; match with errors.Is.
	ErrDataUnavailable = errors.New("dataset unavailable")
	// ErrIndexOutOfRange is returned by positional lookups outside [0, RowCount()).
	ErrIndexOutOfRange = errors.New("row index out of range")
	// ErrUnknownColumn is returned by lookups naming an undeclared column.
	ErrUnknownColumn = errors.New("unknown column")
)

// UnavailableError reports why the two aligned sources could not be loaded
// and what the operator should do about it.
type UnavailableError struct {
	Source string // source that failed, empty when the pair is misaligned
	Hint   string // remediation, e.g. regenerate or re-fetch the files
	Err    error
}

func (e *UnavailableError) Error() string {
	msg := "dataset unavailable"
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDataUnavailable) hold for every UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

func indexError(row, count int) error {
	return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, row, count)
}

func columnError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

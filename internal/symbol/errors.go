package symbol

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no candidate form of a logical name exists in the running host.
	ErrNotFound = errors.New("symbol not found")
	// ErrBadConstructor is returned when a symbol's constructor does not accept the given arguments.
	ErrBadConstructor = errors.New("constructor does not match arguments")
	ErrNilObject      = errors.New("cannot resolve field on nil object")
	ErrNilFieldType   = errors.New("cannot resolve field with nil type")
)

// ResolutionError reports a logical symbol that could not be mapped to a
// concrete form. Callers treat it as a missing host capability.
type ResolutionError struct {
	Name       string
	Candidates []string
	Err        error
}

func (e *ResolutionError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("resolve %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("resolve %q (tried %v): %v", e.Name, e.Candidates, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

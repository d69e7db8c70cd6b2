package workflow

import (
	"errors"
	"fmt"
)

// ErrMalformed is the sentinel every document validation error unwraps to.
var ErrMalformed = errors.New("workflow: malformed document")

// ValidationError names the field that made a document unusable. Step is
// the zero-based prompt index, or -1 for document-level fields.
type ValidationError struct {
	Field  string
	Step   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("workflow: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("workflow: prompt %d: %s: %s", e.Step+1, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformed
}

package reflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCyclicDependency is the panic value raised when a memo's computation
// reads the memo itself, directly or through a chain of dependencies.
var ErrCyclicDependency = errors.New("reflow: cyclic memo dependency")

// EffectPanicError aggregates panics recovered from effect runs during one
// notification pass or batch flush. The triggering Set or Batch call
// re-panics with this value after every independent effect has had its
// chance to run; no effect's failure silently suppresses another's update.
type EffectPanicError struct {
	// Panics holds the recovered panic values in effect-run order.
	Panics []any
}

// Error implements the error interface.
func (e *EffectPanicError) Error() string {
	switch len(e.Panics) {
	case 0:
		return "reflow: effect panicked"
	case 1:
		return fmt.Sprintf("reflow: effect panicked: %v", e.Panics[0])
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "reflow: %d effects panicked:", len(e.Panics))
		for _, p := range e.Panics {
			fmt.Fprintf(&b, "\n\t%v", p)
		}
		return b.String()
	}
}

// Unwrap exposes any recovered panic values that are themselves errors,
// so errors.Is and errors.As see through the aggregate.
func (e *EffectPanicError) Unwrap() []error {
	var errs []error
	for _, p := range e.Panics {
		if err, ok := p.(error); ok {
			errs = append(errs, err)
		}
	}
	return errs
}

package layout

import (
	"fmt"
	"strings"

	"bindforge/internal/diag"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursive indicates a record that contains itself by value.
	LayoutErrRecursive LayoutErrorKind = iota + 1
	// LayoutErrMissingDependency: a referenced aggregate has no layout yet,
	// either because it was never declared or because it failed itself.
	LayoutErrMissingDependency
	LayoutErrInvalidArray
	LayoutErrInvalidBitfield
	LayoutErrIncomplete
	LayoutErrUnknownScalar
	LayoutErrProviderMismatch
	LayoutErrInvariant
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind   LayoutErrorKind
	Record string
	Field  string
	Dep    string   // for LayoutErrMissingDependency, LayoutErrIncomplete, LayoutErrUnknownScalar
	Cycle  []string // for LayoutErrRecursive
	Want   int      // for LayoutErrProviderMismatch: provider fact
	Got    int      // for LayoutErrProviderMismatch: computed value
	What   string   // for LayoutErrProviderMismatch: "size", "align", "offset"
	Err    error
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := fmt.Sprintf("record %q", e.Record)
	if e.Field != "" {
		where += fmt.Sprintf(" field %q", e.Field)
	}
	switch e.Kind {
	case LayoutErrRecursive:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("%s: recursive value type has infinite size", where)
		}
		return fmt.Sprintf("%s: recursive value type has infinite size (cycle: %s)", where, strings.Join(e.Cycle, " -> "))
	case LayoutErrMissingDependency:
		return fmt.Sprintf("%s: referenced type %q has no layout", where, e.Dep)
	case LayoutErrInvalidArray:
		if e.Err != nil {
			return fmt.Sprintf("%s: invalid array: %v", where, e.Err)
		}
		return fmt.Sprintf("%s: invalid array", where)
	case LayoutErrInvalidBitfield:
		if e.Err != nil {
			return fmt.Sprintf("%s: invalid bitfield: %v", where, e.Err)
		}
		return fmt.Sprintf("%s: invalid bitfield", where)
	case LayoutErrIncomplete:
		return fmt.Sprintf("%s: incomplete type %q used by value", where, e.Dep)
	case LayoutErrUnknownScalar:
		return fmt.Sprintf("%s: no size known for scalar %q", where, e.Dep)
	case LayoutErrProviderMismatch:
		return fmt.Sprintf("%s: computed %s %d, front end reports %d", where, e.What, e.Got, e.Want)
	case LayoutErrInvariant:
		return fmt.Sprintf("%s: layout invariant violated: %v", where, e.Err)
	default:
		return fmt.Sprintf("%s: layout error kind=%d", where, e.Kind)
	}
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Code maps the error onto its diagnostic code.
func (e *LayoutError) Code() diag.Code {
	switch e.Kind {
	case LayoutErrRecursive:
		return diag.LayoutRecursive
	case LayoutErrMissingDependency:
		return diag.LayoutMissingDependency
	case LayoutErrInvalidArray:
		return diag.LayoutInvalidArray
	case LayoutErrProviderMismatch:
		return diag.LayoutProviderMismatch
	case LayoutErrInvariant:
		return diag.LayoutInvariant
	default:
		return diag.LayoutUnrepresentable
	}
}

package bind

import (
	"fmt"

	"bindforge/internal/diag"
)

type MappingErrorKind uint8

const (
	MapErrUnknownCallingConvention MappingErrorKind = iota + 1
	MapErrUnrepresentable
	MapErrUnresolved
)

// MappingError drops one declaration from the output.
type MappingError struct {
	Kind   MappingErrorKind
	Decl   string
	Detail string
}

func (e *MappingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case MapErrUnknownCallingConvention:
		return fmt.Sprintf("%q: unknown calling convention %q", e.Decl, e.Detail)
	case MapErrUnrepresentable:
		return fmt.Sprintf("%q: cannot be represented in C#: %s", e.Decl, e.Detail)
	case MapErrUnresolved:
		return fmt.Sprintf("%q: unresolved type %q", e.Decl, e.Detail)
	}
	return fmt.Sprintf("%q: mapping error kind=%d", e.Decl, e.Kind)
}

func (e *MappingError) Code() diag.Code {
	switch e.Kind {
	case MapErrUnknownCallingConvention:
		return diag.MapUnknownCallingConvention
	case MapErrUnresolved:
		return diag.MapUnresolvedType
	default:
		return diag.MapUnrepresentableType
	}
}

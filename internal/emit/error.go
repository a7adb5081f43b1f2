package emit

import (
	"fmt"

	"bindforge/internal/diag"
)

type CodeGenerationErrorKind uint8

const (
	// GenErrMember: one rendered member failed the syntax gate and is dropped.
	GenErrMember CodeGenerationErrorKind = iota + 1
	// GenErrScaffold: the document template itself is invalid; no output.
	GenErrScaffold
)

type CodeGenerationError struct {
	Kind CodeGenerationErrorKind
	// Node is the C name of the declaration, empty for the scaffold.
	Node string
	Err  error
}

func (e *CodeGenerationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == GenErrScaffold {
		return fmt.Sprintf("generated document template is not valid C#: %v", e.Err)
	}
	return fmt.Sprintf("generated code for %q is not valid C#: %v", e.Node, e.Err)
}

func (e *CodeGenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *CodeGenerationError) Code() diag.Code {
	if e.Kind == GenErrScaffold {
		return diag.GenInvalidScaffold
	}
	return diag.GenInvalidMember
}

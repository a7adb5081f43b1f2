package csyntax

import "fmt"

// SyntaxError is the first problem found in a C# fragment. Line and Col
// are relative to the fragment.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

func errorAt(t Token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

package cast

import (
	"fmt"

	"bindforge/internal/diag"
)

// LoadErrorKind enumerates the ways an AST document can be rejected.
type LoadErrorKind uint8

const (
	LoadErrMalformed LoadErrorKind = iota + 1
	LoadErrMissingField
	LoadErrUnknownKind
	LoadErrInvalidType
	LoadErrDuplicate
	LoadErrUnknownPlatform
	LoadErrPlatformMismatch
	LoadErrIO
)

// LoadError rejects a whole platform document; the run cannot continue
// without a complete AST for every requested platform.
type LoadError struct {
	Kind LoadErrorKind
	File string
	Path string // location inside the document, e.g. declarations[3].fields[0].type
	Err  error
}

func (e *LoadError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.File
	if e.Path != "" {
		where += ": " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Kind)
}

func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (k LoadErrorKind) String() string {
	switch k {
	case LoadErrMalformed:
		return "malformed document"
	case LoadErrMissingField:
		return "missing required field"
	case LoadErrUnknownKind:
		return "unknown kind"
	case LoadErrInvalidType:
		return "invalid type reference"
	case LoadErrDuplicate:
		return "duplicate declaration"
	case LoadErrUnknownPlatform:
		return "unknown platform"
	case LoadErrPlatformMismatch:
		return "platform mismatch"
	case LoadErrIO:
		return "read failure"
	}
	return fmt.Sprintf("load error kind=%d", k)
}

// Code maps the error onto its diagnostic code.
func (e *LoadError) Code() diag.Code {
	switch e.Kind {
	case LoadErrMalformed:
		return diag.LoadMalformedDocument
	case LoadErrMissingField:
		return diag.LoadMissingField
	case LoadErrUnknownKind:
		return diag.LoadUnknownKind
	case LoadErrInvalidType:
		return diag.LoadInvalidType
	case LoadErrDuplicate:
		return diag.LoadDuplicateDecl
	case LoadErrUnknownPlatform:
		return diag.LoadUnknownPlatform
	case LoadErrPlatformMismatch:
		return diag.LoadPlatformMismatch
	case LoadErrIO:
		return diag.LoadIO
	}
	return diag.UnknownCode
}

package emit

import (
	_ "embed"

	"bindforge/internal/csyntax"
)

// RuntimeFileName is the name of the interop runtime document.
const RuntimeFileName = "Runtime.g.cs"

//go:embed runtime/Runtime.g.cs
var runtimeSource string

// runtimeDocument returns the CBool and CString helper types the bindings
// reference, validated and formatted like generated code.
func runtimeDocument() (Document, *CodeGenerationError) {
	if err := csyntax.ParseDocument(runtimeSource); err != nil {
		return Document{}, &CodeGenerationError{Kind: GenErrScaffold, Node: RuntimeFileName, Err: err}
	}
	return Document{FileName: RuntimeFileName, Code: csyntax.Format(runtimeSource)}, nil
}

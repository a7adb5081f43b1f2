// Package emit renders binding nodes as C# source. Every member passes the
// csyntax gate before it is placed in the document; the document is then
// normalized with csyntax.Format, so emitting the same nodes twice gives
// byte-identical output.
package emit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bindforge/internal/bind"
	"bindforge/internal/csyntax"
	"bindforge/internal/diag"
)

// Options is the document template configuration.
type Options struct {
	Namespace           string
	ClassName           string
	LibraryName         string
	FileScopedNamespace bool
	// Nullables writes "#nullable enable".
	Nullables bool
	// Usings are extra namespaces, without the "using" keyword.
	Usings []string
	// GenerateRuntime adds Runtime.g.cs with the interop helper types.
	GenerateRuntime bool
}

// Document is one generated C# file.
type Document struct {
	FileName string
	// Members are the validated member texts in output order, before
	// formatting.
	Members []string
	Code    string
}

var defaultUsings = []string{
	"Interop.Runtime",
	"System",
	"System.Collections.Generic",
	"System.Globalization",
	"System.Runtime.InteropServices",
	"System.Runtime.CompilerServices",
}

const placeholder = "// @members"

// Emit renders nodes into the bindings document and, when configured, the
// runtime document. A member rejected by the syntax gate is dropped with a
// GEN5001 error. An invalid template is a *CodeGenerationError of kind
// GenErrScaffold: nothing is emitted.
func Emit(nodes []bind.Node, opts Options, r diag.Reporter) ([]Document, error) {
	start := time.Now()
	scaffold := template(opts)
	if err := csyntax.ParseDocument(scaffold); err != nil {
		cge := &CodeGenerationError{Kind: GenErrScaffold, Err: err}
		diag.ReportError(r, cge.Code(), diag.Location{}, cge.Error()).Emit()
		return nil, cge
	}

	doc := Document{FileName: opts.ClassName + ".g.cs"}
	for _, n := range nodes {
		for _, m := range render(n) {
			if err := csyntax.ParseMember(m.kind, m.text); err != nil {
				cge := &CodeGenerationError{Kind: GenErrMember, Node: m.node, Err: err}
				diag.ReportError(r, cge.Code(), n.Head().Location, cge.Error()).Emit()
				Logger().Debug("member rejected", zap.String("node", m.node), zap.Error(err))
				continue
			}
			doc.Members = append(doc.Members, m.text)
		}
	}
	doc.Code = csyntax.Format(strings.Replace(scaffold, placeholder, strings.Join(doc.Members, "\n\n"), 1))
	docs := []Document{doc}

	if opts.GenerateRuntime {
		rt, err := runtimeDocument()
		if err != nil {
			diag.ReportError(r, err.Code(), diag.Location{}, err.Error()).Emit()
			return nil, err
		}
		docs = append(docs, rt)
	}
	Logger().Debug("emitted",
		zap.String("file", doc.FileName),
		zap.Int("members", len(doc.Members)),
		zap.Duration("elapsed", time.Since(start)))
	return docs, nil
}

// template builds the document around a placeholder comment that marks
// where members go.
func template(opts Options) string {
	var b strings.Builder
	b.WriteString("// <auto-generated>\n")
	b.WriteString("//  This code was generated by bindforge.\n")
	b.WriteString("//\n")
	b.WriteString("//  Changes to this file may cause incorrect behavior and will be lost if the code is regenerated.\n")
	b.WriteString("// </auto-generated>\n")
	b.WriteString("// ReSharper disable All\n\n")
	if opts.Nullables {
		b.WriteString("#nullable enable\n")
	}
	b.WriteString("#pragma warning disable CS1591\n")
	b.WriteString("#pragma warning disable CS8981\n")
	seen := make(map[string]struct{}, len(defaultUsings)+len(opts.Usings))
	for _, list := range [][]string{defaultUsings, opts.Usings} {
		for _, u := range list {
			u = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(u), "using "), ";"))
			if _, dup := seen[u]; dup || u == "" {
				continue
			}
			seen[u] = struct{}{}
			fmt.Fprintf(&b, "using %s;\n", u)
		}
	}
	b.WriteByte('\n')

	braced := opts.Namespace != "" && !opts.FileScopedNamespace
	switch {
	case braced:
		fmt.Fprintf(&b, "namespace %s\n{\n", opts.Namespace)
	case opts.Namespace != "":
		fmt.Fprintf(&b, "namespace %s;\n\n", opts.Namespace)
	}
	fmt.Fprintf(&b, "public static unsafe partial class %s\n{\n", opts.ClassName)
	fmt.Fprintf(&b, "private const string LibraryName = %s;\n\n", bind.StringLiteral(opts.LibraryName))
	b.WriteString(placeholder + "\n")
	b.WriteString("}\n")
	if braced {
		b.WriteString("}\n")
	}
	return b.String()
}

// IsScaffoldError reports whether err aborted emission as a whole.
func IsScaffoldError(err error) bool {
	var cge *CodeGenerationError
	return errors.As(err, &cge) && cge.Kind == GenErrScaffold
}

// Package csyntax is a small C# front end used as a validation gate for
// generated members and as the normalizing formatter of emitted documents.
// It recognizes the declaration-level grammar the emitter produces; method
// bodies are checked for balanced delimiters only.
package csyntax

import "fmt"

type Kind uint8

const (
	EOF Kind = iota
	Ident
	Keyword
	Number
	String
	Char
	Punct
	Comment
	Directive
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Number:
		return "number"
	case String:
		return "string"
	case Char:
		return "char"
	case Punct:
		return "punctuation"
	case Comment:
		return "comment"
	case Directive:
		return "directive"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

type Token struct {
	Kind    Kind
	Text    string
	Line    int
	Col     int
	EndLine int // last line the token touches
}

// Trivia reports tokens the parser skips.
func (t Token) Trivia() bool {
	return t.Kind == Comment || t.Kind == Directive
}

func (t Token) Is(text string) bool {
	return (t.Kind == Punct || t.Kind == Keyword || t.Kind == Ident) && t.Text == text
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

var keywords = map[string]struct{}{
	"abstract": {}, "as": {}, "base": {}, "bool": {}, "break": {}, "byte": {},
	"case": {}, "catch": {}, "char": {}, "checked": {}, "class": {}, "const": {},
	"continue": {}, "decimal": {}, "default": {}, "delegate": {}, "do": {},
	"double": {}, "else": {}, "enum": {}, "event": {}, "explicit": {}, "extern": {},
	"false": {}, "finally": {}, "fixed": {}, "float": {}, "for": {}, "foreach": {},
	"goto": {}, "if": {}, "implicit": {}, "in": {}, "int": {}, "interface": {},
	"internal": {}, "is": {}, "lock": {}, "long": {}, "namespace": {}, "new": {},
	"null": {}, "object": {}, "operator": {}, "out": {}, "override": {},
	"params": {}, "private": {}, "protected": {}, "public": {}, "readonly": {},
	"ref": {}, "return": {}, "sbyte": {}, "sealed": {}, "short": {}, "sizeof": {},
	"stackalloc": {}, "static": {}, "string": {}, "struct": {}, "switch": {},
	"this": {}, "throw": {}, "true": {}, "try": {}, "typeof": {}, "uint": {},
	"ulong": {}, "unchecked": {}, "unsafe": {}, "ushort": {}, "using": {},
	"virtual": {}, "void": {}, "volatile": {}, "while": {},
}

// IsKeyword reports whether s is a reserved C# keyword.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// predefined types usable where a type name is expected
var builtinTypes = map[string]struct{}{
	"bool": {}, "byte": {}, "sbyte": {}, "short": {}, "ushort": {}, "int": {},
	"uint": {}, "long": {}, "ulong": {}, "char": {}, "float": {}, "double": {},
	"decimal": {}, "string": {}, "object": {}, "void": {},
}

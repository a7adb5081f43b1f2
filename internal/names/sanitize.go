// Package names assigns C# identifiers to canonical declarations: keyword
// escaping, backing-field names, pseudo-enum grouping and collision policy.
package names

import (
	"strings"
	"unicode"

	"bindforge/internal/csyntax"
)

// IsKeyword reports whether name is a reserved C# keyword.
func IsKeyword(name string) bool {
	return csyntax.IsKeyword(name)
}

// Sanitize turns a C identifier into a valid C# identifier. Keywords get the
// verbatim prefix: "object" becomes "@object".
func Sanitize(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(name) + 1)
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if IsKeyword(out) {
		return "@" + out
	}
	return out
}

// BackingFieldName derives the storage identifier of a field that is exposed
// through a generated accessor: escaping stripped, underscore prefixed.
func BackingFieldName(target string) string {
	return "_" + strings.TrimPrefix(target, "@")
}

// MemberName maps a field or parameter of the type named enclosing. C# does
// not allow a member to share its enclosing type's name (CS0542), so such a
// member gets a trailing underscore.
func MemberName(name, enclosing string) string {
	s := Sanitize(name)
	if strings.TrimPrefix(s, "@") == strings.TrimPrefix(enclosing, "@") {
		s = strings.TrimPrefix(s, "@") + "_"
	}
	return s
}

package bind

import (
	"errors"
	"fmt"

	"bindforge/internal/cast"
	"bindforge/internal/layout"
	"bindforge/internal/names"
	"bindforge/internal/platform"
)

// maxTypedefDepth bounds typedef chains that are resolved through rather
// than referenced by alias name.
const maxTypedefDepth = 64

// typeMapper translates C type references for one platform variant.
type typeMapper struct {
	platform platform.Platform
	ast      *cast.AST
	layouts  *layout.Table
	table    *names.Table
	// aliases maps typedef names to the alias identifier for the typedefs
	// that are emitted; any other typedef is resolved to its underlying type.
	aliases map[string]string
	decl    string
}

func (m *typeMapper) unrepresentable(format string, args ...any) *MappingError {
	return &MappingError{Kind: MapErrUnrepresentable, Decl: m.decl, Detail: fmt.Sprintf(format, args...)}
}

func (m *typeMapper) unresolved(t *cast.TypeRef) *MappingError {
	return &MappingError{Kind: MapErrUnresolved, Decl: m.decl, Detail: t.Spelling()}
}

// primitive maps a C scalar spelling. The second result is false for
// spellings C# cannot express.
func (m *typeMapper) primitive(name string) (string, bool) {
	switch name {
	case "void":
		return "void", true
	case "bool", "_Bool":
		return "CBool", true
	case "char", "unsigned char", "uint8_t":
		return "byte", true
	case "signed char", "int8_t":
		return "sbyte", true
	case "short", "int16_t":
		return "short", true
	case "unsigned short", "uint16_t", "char16_t":
		return "ushort", true
	case "int", "int32_t":
		return "int", true
	case "unsigned int", "uint32_t", "char32_t":
		return "uint", true
	case "long":
		if m.platform.LongSize == 8 {
			return "long", true
		}
		return "int", true
	case "unsigned long":
		if m.platform.LongSize == 8 {
			return "ulong", true
		}
		return "uint", true
	case "long long", "int64_t":
		return "long", true
	case "unsigned long long", "uint64_t":
		return "ulong", true
	case "float":
		return "float", true
	case "double":
		return "double", true
	case "size_t", "uintptr_t":
		return "nuint", true
	case "ssize_t", "intptr_t", "ptrdiff_t":
		return "nint", true
	case "wchar_t":
		if m.platform.WCharSize == 2 {
			return "ushort", true
		}
		return "int", true
	}
	return "", false
}

// csType maps a reference in value position. Arrays decay to pointers when
// param is set and are rejected otherwise: struct fields handle arrays
// before calling csType.
func (m *typeMapper) csType(t *cast.TypeRef, param bool) (string, error) {
	return m.mapType(t, param, 0)
}

func (m *typeMapper) mapType(t *cast.TypeRef, param bool, depth int) (string, error) {
	if t == nil {
		return "", m.unrepresentable("missing type")
	}
	if depth > maxTypedefDepth {
		return "", m.unrepresentable("typedef chain of %q is too deep", t.Name)
	}
	switch t.Kind {
	case cast.TypePrimitive:
		cs, ok := m.primitive(t.Name)
		if !ok {
			if t.Name == "long double" {
				return "", m.unrepresentable("long double has no C# equivalent")
			}
			return "", m.unresolved(t)
		}
		return cs, nil

	case cast.TypePointer:
		return m.pointer(t.Inner, depth)

	case cast.TypeArray:
		if !param {
			return "", m.unrepresentable("array %s outside of a struct field", t.Spelling())
		}
		return m.pointer(t.Inner, depth)

	case cast.TypeRecord:
		if t.Anonymous != nil {
			return "", m.unrepresentable("anonymous %s outside of a struct field", t.Spelling())
		}
		if name, ok := m.table.Target(cast.Key{Kind: cast.KindRecord, Name: t.Name}); ok {
			return name, nil
		}
		if name, ok := m.table.Target(cast.Key{Kind: cast.KindOpaque, Name: t.Name}); ok {
			return name, nil
		}
		return "", m.unresolved(t)

	case cast.TypeEnum, cast.TypeOpaque, cast.TypeFunctionPointer:
		if name, ok := m.table.Target(cast.Key{Kind: t.Kind.DeclKind(), Name: t.Name}); ok {
			return name, nil
		}
		return "", m.unresolved(t)

	case cast.TypeTypedef:
		if alias, ok := m.aliases[t.Name]; ok {
			return alias, nil
		}
		d, ok := m.ast.Lookup(cast.KindTypedef, t.Name)
		if !ok {
			return "", m.unresolved(t)
		}
		return m.mapType(&d.(*cast.Typedef).Underlying, param, depth+1)
	}
	return "", m.unresolved(t)
}

// pointer maps T*. char* is the runtime's CString; a pointer to a type that
// has no binding degrades to void* since only its address crosses the
// boundary.
func (m *typeMapper) pointer(inner *cast.TypeRef, depth int) (string, error) {
	if inner == nil {
		return "void*", nil
	}
	if inner.Kind == cast.TypePrimitive && inner.Name == "char" {
		return "CString", nil
	}
	cs, err := m.mapType(inner, false, depth)
	if err != nil {
		var me *MappingError
		if errors.As(err, &me) && me.Kind == MapErrUnresolved && inner.Kind != cast.TypePrimitive {
			return "void*", nil
		}
		return "", err
	}
	return cs + "*", nil
}

// resolveArray follows typedefs and reports whether t is an array.
func (m *typeMapper) resolveArray(t *cast.TypeRef) (*cast.TypeRef, bool) {
	r := t
	if r.Kind == cast.TypeTypedef {
		if _, aliased := m.aliases[r.Name]; aliased {
			return t, false
		}
		r = m.ast.Resolve(r)
	}
	return r, r != nil && r.Kind == cast.TypeArray
}

// flattenArray walks nested arrays to the element type and the total count.
func (m *typeMapper) flattenArray(t *cast.TypeRef) (*cast.TypeRef, int) {
	count := 1
	for {
		r, ok := m.resolveArray(t)
		if !ok {
			return t, count
		}
		count *= r.ArrayLength
		t = r.Inner
	}
}

// fixedBufferTypes are the element types C# accepts in a fixed buffer.
var fixedBufferTypes = map[string]struct{}{
	"byte": {}, "sbyte": {}, "short": {}, "ushort": {}, "int": {}, "uint": {},
	"long": {}, "ulong": {}, "float": {}, "double": {}, "bool": {}, "char": {},
}

// unsignedOfSize is the storage primitive for a unit of n bytes.
func unsignedOfSize(n int) string {
	switch {
	case n >= 8:
		return "ulong"
	case n >= 4:
		return "uint"
	case n >= 2:
		return "ushort"
	}
	return "byte"
}

var integerTypes = map[string]struct{}{
	"byte": {}, "sbyte": {}, "short": {}, "ushort": {}, "int": {}, "uint": {},
	"long": {}, "ulong": {}, "nint": {}, "nuint": {},
}

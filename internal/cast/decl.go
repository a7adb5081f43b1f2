package cast

import (
	"strconv"
	"strings"

	"bindforge/internal/diag"
)

// Decl is the closed set of raw C declarations. The variants are *Record,
// *Enum, *Function, *FunctionPointer, *Typedef, *Opaque and *Macro.
type Decl interface {
	Kind() Kind
	DeclName() string
	Loc() diag.Location
	isDecl()
}

// TypeRef is a use of a type: a field type, a parameter, a return value.
type TypeRef struct {
	Name        string // C spelling of primitives, declaration name otherwise
	Kind        TypeKind
	Size        int // provider fact, 0 when unknown
	Align       int
	Const       bool
	Inner       *TypeRef // pointee or array element
	ArrayLength int
	// Anonymous holds an inline record declared at the point of use:
	// struct { union { int a; float b; }; } has one such field.
	Anonymous *Record
}

// Spelling renders the reference as C-like text; it is the identity used when
// comparing signatures across platforms.
func (t *TypeRef) Spelling() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypePointer:
		return t.Inner.Spelling() + "*"
	case TypeArray:
		return t.Inner.Spelling() + "[" + strconv.Itoa(t.ArrayLength) + "]"
	case TypeRecord:
		if t.Anonymous != nil {
			var b strings.Builder
			if t.Anonymous.Union {
				b.WriteString("union {")
			} else {
				b.WriteString("struct {")
			}
			for i := range t.Anonymous.Fields {
				f := &t.Anonymous.Fields[i]
				b.WriteByte(' ')
				b.WriteString(f.Type.Spelling())
				b.WriteByte(' ')
				b.WriteString(f.Name)
				b.WriteByte(';')
			}
			b.WriteString(" }")
			return b.String()
		}
	}
	return t.Name
}

// IsVaList reports whether the type is the C va_list (or a pointer to it,
// which is how some ABIs decay it in parameter position).
func (t *TypeRef) IsVaList() bool {
	for ref := t; ref != nil; ref = ref.Inner {
		switch ref.Name {
		case "va_list", "__builtin_va_list", "__va_list_tag", "struct __va_list_tag":
			return true
		}
		if ref.Kind != TypePointer && ref.Kind != TypeArray {
			return false
		}
	}
	return false
}

type Field struct {
	Name      string
	Type      TypeRef
	Offset    int // provider fact in bytes; meaningful when HasOffset
	HasOffset bool
	BitWidth  int // 0 for ordinary fields
	Bitfield  bool
	Location  diag.Location
}

type Record struct {
	Name          string
	Union         bool
	Fields        []Field
	Size          int // provider facts, 0 when unknown
	Align         int
	Packed        bool
	AlignOverride int
	Anonymous     bool
	Location      diag.Location
}

func (r *Record) Kind() Kind { return KindRecord }
func (r *Record) DeclName() string { return r.Name }
func (r *Record) Loc() diag.Location { return r.Location }
func (r *Record) isDecl() {}

type EnumValue struct {
	Name  string
	Value int64
}

type Enum struct {
	Name       string
	Values     []EnumValue
	Size       int
	Extensible bool
	Location   diag.Location
}

func (e *Enum) Kind() Kind { return KindEnum }
func (e *Enum) DeclName() string { return e.Name }
func (e *Enum) Loc() diag.Location { return e.Location }
func (e *Enum) isDecl() {}

type Param struct {
	Name string
	Type TypeRef
}

type Function struct {
	Name              string
	CallingConvention string
	Return            TypeRef
	Params            []Param
	Variadic          bool
	Location          diag.Location
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) DeclName() string { return f.Name }
func (f *Function) Loc() diag.Location { return f.Location }
func (f *Function) isDecl() {}

type FunctionPointer struct {
	Name              string
	CallingConvention string
	Return            TypeRef
	Params            []Param
	Size              int
	Align             int
	Location          diag.Location
}

func (f *FunctionPointer) Kind() Kind { return KindFunctionPointer }
func (f *FunctionPointer) DeclName() string { return f.Name }
func (f *FunctionPointer) Loc() diag.Location { return f.Location }
func (f *FunctionPointer) isDecl() {}

type Typedef struct {
	Name       string
	Underlying TypeRef
	Location   diag.Location
}

func (t *Typedef) Kind() Kind { return KindTypedef }
func (t *Typedef) DeclName() string { return t.Name }
func (t *Typedef) Loc() diag.Location { return t.Location }
func (t *Typedef) isDecl() {}

type Opaque struct {
	Name     string
	Location diag.Location
}

func (o *Opaque) Kind() Kind { return KindOpaque }
func (o *Opaque) DeclName() string { return o.Name }
func (o *Opaque) Loc() diag.Location { return o.Location }
func (o *Opaque) isDecl() {}

// Macro is an object-like #define whose value the front end could evaluate.
type Macro struct {
	Name      string
	ValueKind MacroKind
	Raw       string
	Int       int64  // MacroInt, when it fits
	Uint      uint64 // MacroInt beyond int64 range
	Unsigned  bool
	Float     float64
	Bool      bool
	Location  diag.Location
}

func (m *Macro) Kind() Kind { return KindMacro }
func (m *Macro) DeclName() string { return m.Name }
func (m *Macro) Loc() diag.Location { return m.Location }
func (m *Macro) isDecl() {}

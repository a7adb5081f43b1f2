package cast

// Kind enumerates the declaration variants a platform AST may carry.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRecord
	KindEnum
	KindFunction
	KindFunctionPointer
	KindTypedef
	KindOpaque
	KindMacro
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	case KindFunction:
		return "function"
	case KindFunctionPointer:
		return "function_pointer"
	case KindTypedef:
		return "typedef"
	case KindOpaque:
		return "opaque"
	case KindMacro:
		return "macro"
	}
	return "invalid"
}

func parseKind(s string) Kind {
	switch s {
	case "record":
		return KindRecord
	case "enum":
		return KindEnum
	case "function":
		return KindFunction
	case "function_pointer":
		return KindFunctionPointer
	case "typedef":
		return KindTypedef
	case "opaque":
		return KindOpaque
	case "macro":
		return KindMacro
	}
	return KindInvalid
}

// TypeKind classifies a type reference.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypePrimitive
	TypePointer
	TypeArray
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeFunctionPointer
	TypeOpaque
)

func (k TypeKind) String() string {
	switch k {
	case TypePrimitive:
		return "primitive"
	case TypePointer:
		return "pointer"
	case TypeArray:
		return "array"
	case TypeRecord:
		return "record"
	case TypeEnum:
		return "enum"
	case TypeTypedef:
		return "typedef"
	case TypeFunctionPointer:
		return "function_pointer"
	case TypeOpaque:
		return "opaque"
	}
	return "invalid"
}

func parseTypeKind(s string) TypeKind {
	switch s {
	case "primitive":
		return TypePrimitive
	case "pointer":
		return TypePointer
	case "array":
		return TypeArray
	case "record":
		return TypeRecord
	case "enum":
		return TypeEnum
	case "typedef":
		return TypeTypedef
	case "function_pointer":
		return TypeFunctionPointer
	case "opaque":
		return TypeOpaque
	}
	return TypeInvalid
}

// DeclKind maps a named type reference to the declaration kind it points at.
func (k TypeKind) DeclKind() Kind {
	switch k {
	case TypeRecord:
		return KindRecord
	case TypeEnum:
		return KindEnum
	case TypeTypedef:
		return KindTypedef
	case TypeFunctionPointer:
		return KindFunctionPointer
	case TypeOpaque:
		return KindOpaque
	}
	return KindInvalid
}

// MacroKind is the literal kind of a macro object value.
type MacroKind uint8

const (
	MacroInt MacroKind = iota + 1
	MacroFloat
	MacroString
	MacroBool
)

func (k MacroKind) String() string {
	switch k {
	case MacroInt:
		return "int"
	case MacroFloat:
		return "float"
	case MacroString:
		return "string"
	case MacroBool:
		return "bool"
	}
	return "invalid"
}

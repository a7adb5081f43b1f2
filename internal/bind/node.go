// Package bind maps canonical C declarations onto C# binding nodes: the C#
// type of every field, parameter and constant, wrapped fixed buffers,
// enum sentinels, bitfield accessors and the fixed emission order.
package bind

import (
	"bindforge/internal/cast"
	"bindforge/internal/diag"
)

// NodeKind enumerates the binding variants.
type NodeKind uint8

const (
	KindFunctionExtern NodeKind = iota + 1
	KindMacroConstant
	KindPseudoEnum
	KindStruct
	KindEnum
	KindOpaqueType
	KindTypeAlias
	KindFunctionPointer
)

func (k NodeKind) String() string {
	switch k {
	case KindFunctionExtern:
		return "FunctionExtern"
	case KindMacroConstant:
		return "MacroConstant"
	case KindPseudoEnum:
		return "PseudoEnum"
	case KindStruct:
		return "Struct"
	case KindEnum:
		return "Enum"
	case KindOpaqueType:
		return "OpaqueType"
	case KindTypeAlias:
		return "TypeAlias"
	case KindFunctionPointer:
		return "FunctionPointer"
	}
	return "invalid"
}

// Node is the closed set of binding variants.
type Node interface {
	Kind() NodeKind
	Head() *Header
	isNode()
}

// Header is shared by every binding node.
type Header struct {
	Name     string // C# identifier
	CName    string
	CKind    cast.Kind
	Location diag.Location
	// Platforms lists the triples that declare the node.
	Platforms []string
	Partial   bool
	// Divergent nodes follow the first platform; Variants describes each
	// platform's shape for the emitted comment.
	Divergent bool
	Variants  []string
}

func (h *Header) Head() *Header { return h }

type Param struct {
	Name string
	Type string
}

type FunctionExtern struct {
	Header
	EntryPoint        string // C symbol, verbatim
	CallingConvention string // System.Runtime.InteropServices.CallingConvention member
	Return            string
	Params            []Param
}

func (*FunctionExtern) Kind() NodeKind { return KindFunctionExtern }
func (*FunctionExtern) isNode()        {}

type MacroConstant struct {
	Header
	Type  string // int, uint, long, ulong, double, string, bool
	Value string // C# literal
}

func (*MacroConstant) Kind() NodeKind { return KindMacroConstant }
func (*MacroConstant) isNode()        {}

// PseudoEnum groups macro constants for documentation; the constants are
// emitted independently.
type PseudoEnum struct {
	Header
	Constants []*MacroConstant
}

func (*PseudoEnum) Kind() NodeKind { return KindPseudoEnum }
func (*PseudoEnum) isNode()        {}

// BufferKind says how an array field is stored.
type BufferKind uint8

const (
	BufferNone BufferKind = iota
	// BufferFixed: a native C# fixed buffer of the element type.
	BufferFixed
	// BufferWrapped: a raw fixed buffer of alignment-sized unsigned units plus
	// a Span<T> accessor.
	BufferWrapped
	// BufferString: a byte buffer plus a string accessor.
	BufferString
)

type Bitfield struct {
	Name      string
	Type      string
	BitOffset int
	BitWidth  int
}

type StructField struct {
	Name    string
	Type    string // field type, or element type for buffers
	Offset  int
	Size    int
	Padding int
	CType   string

	Buffer      BufferKind
	BackingName string
	StorageType string // element type of the emitted fixed buffer
	StorageLen  int
	ElemCount   int // elements exposed by the accessor

	// Bits is set for the backing field of a bitfield storage unit.
	Bits []Bitfield
}

type Struct struct {
	Header
	Size   int
	Align  int
	Union  bool
	Fields []StructField
	// Nested holds the inline anonymous aggregates, scoped to this struct.
	Nested []*Struct
}

func (*Struct) Kind() NodeKind { return KindStruct }
func (*Struct) isNode()        {}

type EnumMember struct {
	Name     string
	Value    string
	Sentinel bool
}

type Enum struct {
	Header
	Underlying string // int or uint
	Members    []EnumMember
}

func (*Enum) Kind() NodeKind { return KindEnum }
func (*Enum) isNode()        {}

// RealMembers returns the members without the sizing sentinel.
func (e *Enum) RealMembers() []EnumMember {
	out := make([]EnumMember, 0, len(e.Members))
	for _, m := range e.Members {
		if !m.Sentinel {
			out = append(out, m)
		}
	}
	return out
}

type OpaqueType struct {
	Header
}

func (*OpaqueType) Kind() NodeKind { return KindOpaqueType }
func (*OpaqueType) isNode()        {}

type TypeAlias struct {
	Header
	Underlying string
	Size       int
	Align      int
}

func (*TypeAlias) Kind() NodeKind { return KindTypeAlias }
func (*TypeAlias) isNode()        {}

type FunctionPointer struct {
	Header
	// Native selects delegate* unmanaged[...] over the delegate fallback.
	Native            bool
	CallingConvention string // Cdecl, Fastcall or Stdcall
	Return            string
	Params            []Param
}

func (*FunctionPointer) Kind() NodeKind { return KindFunctionPointer }
func (*FunctionPointer) isNode()        {}

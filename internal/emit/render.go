package emit

import (
	"fmt"
	"strconv"
	"strings"

	"bindforge/internal/bind"
	"bindforge/internal/csyntax"
)

// member is one rendered class member waiting for the syntax gate.
type member struct {
	kind csyntax.MemberKind
	node string // C name, for diagnostics
	text string
}

// render turns a binding node into class members. A pseudo enum yields one
// constant per macro.
func render(n bind.Node) []member {
	switch n := n.(type) {
	case *bind.FunctionExtern:
		return []member{{csyntax.MemberMethod, n.CName, renderFunction(n)}}
	case *bind.MacroConstant:
		return []member{{csyntax.MemberConst, n.CName, renderConstant(n, "")}}
	case *bind.PseudoEnum:
		out := make([]member, 0, len(n.Constants))
		for i, c := range n.Constants {
			note := ""
			if i == 0 {
				note = fmt.Sprintf("// Pseudo enum '%s'\n", n.Name)
			}
			out = append(out, member{csyntax.MemberConst, c.CName, renderConstant(c, note)})
		}
		return out
	case *bind.Struct:
		return []member{{csyntax.MemberStruct, n.CName, renderStruct(n)}}
	case *bind.Enum:
		return []member{{csyntax.MemberEnum, n.CName, renderEnum(n)}}
	case *bind.OpaqueType:
		return []member{{csyntax.MemberStruct, n.CName, renderOpaque(n)}}
	case *bind.TypeAlias:
		return []member{{csyntax.MemberStruct, n.CName, renderAlias(n)}}
	case *bind.FunctionPointer:
		return []member{{csyntax.MemberStruct, n.CName, renderFunctionPointer(n)}}
	}
	return nil
}

// writeHeader writes the location and platform comments of a node.
func writeHeader(b *strings.Builder, h *bind.Header) {
	if !h.Location.IsZero() {
		fmt.Fprintf(b, "// %s @ %s\n", h.CKind, h.Location)
	}
	if h.Partial {
		fmt.Fprintf(b, "// Declared only on: %s\n", strings.Join(h.Platforms, ", "))
	}
	if h.Divergent && len(h.Platforms) > 0 {
		fmt.Fprintf(b, "// Differs across platforms; this binding follows %s.\n", h.Platforms[0])
		for _, v := range h.Variants {
			fmt.Fprintf(b, "//   %s\n", v)
		}
	}
}

func params(ps []bind.Param) string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, p.Type+" "+p.Name)
	}
	return strings.Join(parts, ", ")
}

func renderFunction(n *bind.FunctionExtern) string {
	var b strings.Builder
	writeHeader(&b, &n.Header)
	fmt.Fprintf(&b, "[DllImport(LibraryName, EntryPoint = %s, CallingConvention = CallingConvention.%s)]\n",
		bind.StringLiteral(n.EntryPoint), n.CallingConvention)
	fmt.Fprintf(&b, "public static extern %s %s(%s);", n.Return, n.Name, params(n.Params))
	return b.String()
}

func renderConstant(n *bind.MacroConstant, note string) string {
	var b strings.Builder
	b.WriteString(note)
	writeHeader(&b, &n.Header)
	fmt.Fprintf(&b, "public const %s %s = %s;", n.Type, n.Name, n.Value)
	return b.String()
}

func renderEnum(n *bind.Enum) string {
	var b strings.Builder
	writeHeader(&b, &n.Header)
	fmt.Fprintf(&b, "public enum %s : %s\n{\n", n.Name, n.Underlying)
	for i, m := range n.Members {
		fmt.Fprintf(&b, "%s = %s", m.Name, m.Value)
		if i < len(n.Members)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}

func renderOpaque(n *bind.OpaqueType) string {
	var b strings.Builder
	writeHeader(&b, &n.Header)
	fmt.Fprintf(&b, "[StructLayout(LayoutKind.Sequential)]\npublic struct %s\n{\n}", n.Name)
	return b.String()
}

func renderAlias(n *bind.TypeAlias) string {
	var b strings.Builder
	writeHeader(&b, &n.Header)
	fmt.Fprintf(&b, "[StructLayout(LayoutKind.Explicit, Size = %d, Pack = %d)]\n", n.Size, n.Align)
	fmt.Fprintf(&b, "public struct %s\n{\n", n.Name)
	fmt.Fprintf(&b, "[FieldOffset(0)] // size = %d, padding = 0\npublic %s Data;\n\n", n.Size, n.Underlying)
	fmt.Fprintf(&b, "public static implicit operator %s(%s data) => data.Data;\n", n.Underlying, n.Name)
	fmt.Fprintf(&b, "public static implicit operator %s(%s data) => new() { Data = data };\n", n.Name, n.Underlying)
	b.WriteByte('}')
	return b.String()
}

func renderFunctionPointer(n *bind.FunctionPointer) string {
	var b strings.Builder
	writeHeader(&b, &n.Header)
	if n.Native {
		types := make([]string, 0, len(n.Params)+1)
		for _, p := range n.Params {
			types = append(types, p.Type)
		}
		types = append(types, n.Return)
		ptr := fmt.Sprintf("delegate* unmanaged[%s]<%s>", n.CallingConvention, strings.Join(types, ", "))
		fmt.Fprintf(&b, "[StructLayout(LayoutKind.Sequential)]\npublic partial struct %s\n{\n", n.Name)
		fmt.Fprintf(&b, "public %s Pointer;\n\n", ptr)
		fmt.Fprintf(&b, "public %s(%s pointer)\n{\nPointer = pointer;\n}\n}", n.Name, ptr)
		return b.String()
	}
	fmt.Fprintf(&b, "[StructLayout(LayoutKind.Sequential)]\npublic partial struct %s\n{\n", n.Name)
	fmt.Fprintf(&b, "[UnmanagedFunctionPointer(CallingConvention.%s)]\n", interopConvention(n.CallingConvention))
	fmt.Fprintf(&b, "public unsafe delegate %s @delegate(%s);\n\n", n.Return, params(n.Params))
	b.WriteString("public IntPtr Pointer;\n\n")
	fmt.Fprintf(&b, "public %s(@delegate d)\n{\nPointer = Marshal.GetFunctionPointerForDelegate(d);\n}\n}", n.Name)
	return b.String()
}

// interopConvention maps the unmanaged modifier to the CallingConvention
// member of the same convention.
func interopConvention(unmanaged string) string {
	switch unmanaged {
	case "Stdcall":
		return "StdCall"
	case "Fastcall":
		return "FastCall"
	case "Thiscall":
		return "ThisCall"
	}
	return "Cdecl"
}

func renderStruct(n *bind.Struct) string {
	var b strings.Builder
	writeHeader(&b, &n.Header)
	writeStruct(&b, n)
	return b.String()
}

func writeStruct(b *strings.Builder, n *bind.Struct) {
	fmt.Fprintf(b, "[StructLayout(LayoutKind.Explicit, Size = %d, Pack = %d)]\n", n.Size, n.Align)
	fmt.Fprintf(b, "public struct %s\n{\n", n.Name)
	for i := range n.Fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeField(b, n, &n.Fields[i])
	}
	for _, nested := range n.Nested {
		b.WriteByte('\n')
		if !nested.Location.IsZero() {
			fmt.Fprintf(b, "// anonymous %s @ %s\n", kindWord(nested), nested.Location)
		}
		writeStruct(b, nested)
		b.WriteByte('\n')
	}
	b.WriteByte('}')
}

func kindWord(s *bind.Struct) string {
	if s.Union {
		return "union"
	}
	return "struct"
}

func writeField(b *strings.Builder, s *bind.Struct, f *bind.StructField) {
	fmt.Fprintf(b, "[FieldOffset(%d)] // size = %d, padding = %d\n", f.Offset, f.Size, f.Padding)
	switch {
	case f.Bits != nil:
		fmt.Fprintf(b, "public %s %s;\n", f.Type, f.Name)
		for _, bit := range f.Bits {
			b.WriteByte('\n')
			writeBitAccessor(b, f, bit)
		}
	case f.Buffer == bind.BufferFixed:
		fmt.Fprintf(b, "public fixed %s %s[%d]; // %s\n", f.StorageType, f.Name, f.StorageLen, f.CType)
	case f.Buffer == bind.BufferString:
		fmt.Fprintf(b, "public fixed %s %s[%d]; // %s\n\n", f.StorageType, f.BackingName, f.StorageLen, f.CType)
		fmt.Fprintf(b, "public string %s\n{\nget\n{\nfixed (%s*@this = &this)\n{\n", f.Name, s.Name)
		fmt.Fprintf(b, "var pointer = &@this->%s[0];\n", f.BackingName)
		b.WriteString("var cString = new CString(pointer);\nreturn CString.ToString(cString);\n}\n}\n}\n")
	case f.Buffer == bind.BufferWrapped:
		fmt.Fprintf(b, "public fixed %s %s[%d]; // %s\n\n", f.StorageType, f.BackingName, f.StorageLen, f.CType)
		fmt.Fprintf(b, "public Span<%s> %s\n{\nget\n{\nfixed (%s*@this = &this)\n{\n", f.Type, f.Name, s.Name)
		fmt.Fprintf(b, "var pointer = &@this->%s[0];\n", f.BackingName)
		fmt.Fprintf(b, "var span = new Span<%s>(pointer, %d);\nreturn span;\n}\n}\n}\n", f.Type, f.ElemCount)
	default:
		fmt.Fprintf(b, "public %s %s; // %s\n", f.Type, f.Name, f.CType)
	}
}

var signedTypes = map[string]bool{"sbyte": true, "short": true, "int": true, "long": true, "nint": true}

// writeBitAccessor renders a property over one bitfield of a storage unit.
// Arithmetic runs in ulong so every storage width behaves the same; signed
// fields are sign-extended by an arithmetic shift.
func writeBitAccessor(b *strings.Builder, unit *bind.StructField, bit bind.Bitfield) {
	mask := uint64(1)<<bit.BitWidth - 1
	if bit.BitWidth >= 64 {
		mask = ^uint64(0)
	}
	maskLit := "0x" + strings.ToUpper(strconv.FormatUint(mask, 16)) + "UL"

	fmt.Fprintf(b, "public %s %s\n{\n", bit.Type, bit.Name)
	if signedTypes[bit.Type] {
		fmt.Fprintf(b, "get => (%s)((long)((ulong)%s << %d) >> %d);\n",
			bit.Type, unit.Name, 64-bit.BitOffset-bit.BitWidth, 64-bit.BitWidth)
	} else {
		fmt.Fprintf(b, "get => (%s)(((ulong)%s >> %d) & %s);\n", bit.Type, unit.Name, bit.BitOffset, maskLit)
	}
	fmt.Fprintf(b, "set => %s = (%s)(((ulong)%s & ~(%s << %d)) | (((ulong)value & %s) << %d));\n",
		unit.Name, unit.Type, unit.Name, maskLit, bit.BitOffset, maskLit, bit.BitOffset)
	b.WriteString("}\n")
}

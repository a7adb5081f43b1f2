package unify

import (
	"fmt"
	"strconv"
	"strings"

	"bindforge/internal/cast"
	"bindforge/internal/layout"
)

// signature renders the parts of a declaration that must match across
// platforms, apart from record layouts which are compared structurally.
// Sizes are included so that "long" on LLP64 and LP64 does not compare equal.
func signature(c *layout.Calculator, table *layout.Table, d cast.Decl) string {
	var b strings.Builder
	switch d := d.(type) {
	case *cast.Record:
		// layout carries everything
	case *cast.Enum:
		fmt.Fprintf(&b, "enum size=%d {", d.Size)
		for _, v := range d.Values {
			fmt.Fprintf(&b, " %s=%d", v.Name, v.Value)
		}
		b.WriteString(" }")
	case *cast.Function:
		writeCall(&b, c, table, d.CallingConvention, &d.Return, d.Params)
		if d.Variadic {
			b.WriteString(" ...")
		}
	case *cast.FunctionPointer:
		writeCall(&b, c, table, d.CallingConvention, &d.Return, d.Params)
	case *cast.Typedef:
		b.WriteString("typedef ")
		writeType(&b, c, table, &d.Underlying)
	case *cast.Opaque:
		b.WriteString("opaque")
	case *cast.Macro:
		fmt.Fprintf(&b, "macro %s %s", d.ValueKind, strings.TrimSpace(d.Raw))
	}
	return b.String()
}

func writeCall(b *strings.Builder, c *layout.Calculator, table *layout.Table, cc string, ret *cast.TypeRef, params []cast.Param) {
	b.WriteString(strings.ToLower(cc))
	b.WriteByte(' ')
	writeType(b, c, table, ret)
	b.WriteString(" (")
	for i := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		writeType(b, c, table, &params[i].Type)
	}
	b.WriteByte(')')
}

func writeType(b *strings.Builder, c *layout.Calculator, table *layout.Table, t *cast.TypeRef) {
	b.WriteString(t.Spelling())
	if t.Kind == cast.TypePrimitive && t.Name == "void" {
		return
	}
	if size, _, err := c.SizeOf(t, table); err == nil {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(size))
	}
}

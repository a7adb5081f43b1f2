// Package layout computes the C memory layout of records: size, alignment,
// field offsets and the padding inserted before each field.
package layout

import (
	"bindforge/internal/cast"
	"bindforge/internal/platform"
)

// FieldLayout is the placement of one record field.
type FieldLayout struct {
	Name    string
	Index   int // position in cast.Record.Fields
	Offset  int
	Size    int
	Align   int
	Padding int // bytes inserted before the field

	// Bitfields share a storage unit: every field of one unit has the same
	// Offset, Size and Unit; only the first one carries the unit's Padding.
	Bitfield  bool
	Unit      int
	BitOffset int
	BitWidth  int

	// Nested is the layout of an inline anonymous aggregate member.
	Nested *Info
}

// Info is the ABI layout of a record for a specific platform.
type Info struct {
	Name            string
	Size            int
	Align           int
	Fields          []FieldLayout
	TrailingPadding int
	Union           bool
	Packed          bool
}

// Field returns the layout of the named field.
func (i *Info) Field(name string) (FieldLayout, bool) {
	for _, f := range i.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// Equal reports bit-for-bit agreement: size, alignment and every field's
// name, offset, size and bit position.
func (i *Info) Equal(o *Info) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.Size != o.Size || i.Align != o.Align || i.Union != o.Union || len(i.Fields) != len(o.Fields) {
		return false
	}
	for k := range i.Fields {
		a, b := &i.Fields[k], &o.Fields[k]
		if a.Name != b.Name || a.Offset != b.Offset || a.Size != b.Size ||
			a.Bitfield != b.Bitfield || a.BitOffset != b.BitOffset || a.BitWidth != b.BitWidth {
			return false
		}
		if !a.Nested.Equal(b.Nested) {
			return false
		}
	}
	return true
}

// Calculator computes record layouts for one platform.
type Calculator struct {
	Platform platform.Platform
	AST      *cast.AST
	// Strict runs CheckInvariants on every computed layout.
	Strict bool
}

// New creates a calculator for the platform of ast.
func New(ast *cast.AST) *Calculator {
	return &Calculator{Platform: ast.Platform, AST: ast, Strict: true}
}

// Calculate computes the layout of rec. Every record rec embeds by value must
// already be present in table; otherwise the result is a *LayoutError of kind
// LayoutErrMissingDependency and the caller is expected to retry in
// dependency order.
func (c *Calculator) Calculate(rec *cast.Record, table *Table) (Info, error) {
	info, lerr := c.record(rec, table)
	if lerr != nil {
		return Info{}, lerr
	}
	if lerr := checkProviderFacts(rec, &info); lerr != nil {
		return Info{}, lerr
	}
	if c.Strict {
		if err := CheckInvariants(&info); err != nil {
			return Info{}, &LayoutError{Kind: LayoutErrInvariant, Record: rec.Name, Err: err}
		}
	}
	return info, nil
}

func checkProviderFacts(rec *cast.Record, info *Info) *LayoutError {
	if rec.Size > 0 && rec.Size != info.Size {
		return &LayoutError{Kind: LayoutErrProviderMismatch, Record: rec.Name, What: "size", Want: rec.Size, Got: info.Size}
	}
	if rec.Align > 0 && rec.Align != info.Align {
		return &LayoutError{Kind: LayoutErrProviderMismatch, Record: rec.Name, What: "align", Want: rec.Align, Got: info.Align}
	}
	for _, fl := range info.Fields {
		f := &rec.Fields[fl.Index]
		// bit positions are not cross-checked: front ends disagree on how to report them
		if f.HasOffset && !f.Bitfield && f.Offset != fl.Offset {
			return &LayoutError{Kind: LayoutErrProviderMismatch, Record: rec.Name, Field: f.Name, What: "offset", Want: f.Offset, Got: fl.Offset}
		}
		if fl.Nested != nil && f.Type.Anonymous != nil {
			if lerr := checkProviderFacts(f.Type.Anonymous, fl.Nested); lerr != nil {
				lerr.Record = rec.Name
				return lerr
			}
		}
	}
	return nil
}

// SizeOf returns the size and alignment of a type used by value. Records are
// looked up in table.
func (c *Calculator) SizeOf(t *cast.TypeRef, table *Table) (size, align int, err error) {
	if t.Anonymous != nil {
		info, lerr := c.record(t.Anonymous, table)
		if lerr != nil {
			return 0, 0, lerr
		}
		return info.Size, info.Align, nil
	}
	s, lerr := c.typeLayout(t, table, 0)
	if lerr != nil {
		return 0, 0, lerr
	}
	return s.Size, s.Align, nil
}

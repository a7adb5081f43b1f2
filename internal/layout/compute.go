package layout

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"bindforge/internal/cast"
)

type scalar struct {
	Size  int
	Align int
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

// unit is the bitfield storage unit currently being filled.
type unit struct {
	open   bool
	index  int
	offset int
	size   int
	align  int
	used   int // bits
}

func (c *Calculator) record(rec *cast.Record, table *Table) (Info, *LayoutError) {
	info := Info{
		Name:   rec.Name,
		Union:  rec.Union,
		Packed: rec.Packed,
		Fields: make([]FieldLayout, 0, len(rec.Fields)),
	}
	if rec.Union {
		if err := c.unionFields(rec, table, &info); err != nil {
			return Info{}, err
		}
	} else {
		fields := c.sysvStructFields
		if c.Platform.Windows() {
			fields = c.msStructFields
		}
		if err := fields(rec, table, &info); err != nil {
			return Info{}, err
		}
	}
	return info, nil
}

// msStructFields lays out a struct the way MSVC does: a bitfield owns a whole
// storage unit of its declared type, and a change of type opens a new unit.
func (c *Calculator) msStructFields(rec *cast.Record, table *Table, info *Info) *LayoutError {
	cursor := 0
	align := 1
	units := 0
	bump := 1 // alignment forced by a zero-width bitfield
	var cur unit

	for i := range rec.Fields {
		f := &rec.Fields[i]
		fl, nested, err := c.fieldType(rec, f, table)
		if err != nil {
			return err
		}
		fAlign := fl.Align
		if rec.Packed || fAlign <= 0 {
			fAlign = 1
		}

		if f.Bitfield {
			if f.BitWidth > fl.Size*8 {
				return &LayoutError{Kind: LayoutErrInvalidBitfield, Record: rec.Name, Field: f.Name,
					Err: fmt.Errorf("width %d exceeds %d-bit storage unit", f.BitWidth, fl.Size*8)}
			}
			if f.BitWidth == 0 {
				// zero width closes the unit and aligns the next field
				cur.open = false
				bump = max(bump, fAlign)
				continue
			}
			if cur.open && cur.size == fl.Size && cur.used+f.BitWidth <= cur.size*8 {
				info.Fields = append(info.Fields, FieldLayout{
					Name: f.Name, Index: i,
					Offset: cur.offset, Size: cur.size, Align: cur.align,
					Bitfield: true, Unit: cur.index, BitOffset: cur.used, BitWidth: f.BitWidth,
				})
				cur.used += f.BitWidth
				continue
			}
			offset := roundUp(roundUp(cursor, fAlign), bump)
			bump = 1
			cur = unit{open: true, index: units, offset: offset, size: fl.Size, align: fAlign, used: f.BitWidth}
			units++
			info.Fields = append(info.Fields, FieldLayout{
				Name: f.Name, Index: i,
				Offset: offset, Size: fl.Size, Align: fAlign, Padding: offset - cursor,
				Bitfield: true, Unit: cur.index, BitWidth: f.BitWidth,
			})
			cursor = offset + fl.Size
			align = max(align, fAlign)
			continue
		}

		cur.open = false
		offset := roundUp(roundUp(cursor, fAlign), bump)
		bump = 1
		info.Fields = append(info.Fields, FieldLayout{
			Name: f.Name, Index: i,
			Offset: offset, Size: fl.Size, Align: fAlign, Padding: offset - cursor,
			Nested: nested,
		})
		cursor = offset + fl.Size
		align = max(align, fAlign)
	}

	if rec.AlignOverride > 0 {
		align = max(align, rec.AlignOverride)
	}
	if rec.Packed && rec.AlignOverride == 0 {
		align = 1
	}
	info.Align = align
	info.Size = roundUp(cursor, align)
	info.TrailingPadding = info.Size - cursor
	return nil
}

func (c *Calculator) unionFields(rec *cast.Record, table *Table, info *Info) *LayoutError {
	size := 0
	align := 1
	for i := range rec.Fields {
		f := &rec.Fields[i]
		fl, nested, err := c.fieldType(rec, f, table)
		if err != nil {
			return err
		}
		if f.Bitfield {
			if f.BitWidth > fl.Size*8 {
				return &LayoutError{Kind: LayoutErrInvalidBitfield, Record: rec.Name, Field: f.Name,
					Err: fmt.Errorf("width %d exceeds %d-bit storage unit", f.BitWidth, fl.Size*8)}
			}
			if f.BitWidth == 0 {
				continue
			}
		}
		fAlign := fl.Align
		if rec.Packed || fAlign <= 0 {
			fAlign = 1
		}
		info.Fields = append(info.Fields, FieldLayout{
			Name: f.Name, Index: i,
			Size: fl.Size, Align: fAlign,
			Bitfield: f.Bitfield, Unit: i, BitWidth: f.BitWidth,
			Nested: nested,
		})
		size = max(size, fl.Size)
		align = max(align, fAlign)
	}
	if rec.AlignOverride > 0 {
		align = max(align, rec.AlignOverride)
	}
	info.Align = align
	info.Size = roundUp(size, align)
	info.TrailingPadding = info.Size - size
	return nil
}

func (c *Calculator) fieldType(rec *cast.Record, f *cast.Field, table *Table) (scalar, *Info, *LayoutError) {
	if f.Type.Anonymous != nil {
		nested, err := c.record(f.Type.Anonymous, table)
		if err != nil {
			if err.Record == "" {
				err.Record = rec.Name
			}
			return scalar{}, nil, err
		}
		return scalar{Size: nested.Size, Align: nested.Align}, &nested, nil
	}
	s, err := c.typeLayout(&f.Type, table, 0)
	if err != nil {
		err.Record = rec.Name
		err.Field = f.Name
		return scalar{}, nil, err
	}
	return s, nil, nil
}

const maxTypedefDepth = 64

// typeLayout returns the size and alignment of a type used by value.
func (c *Calculator) typeLayout(t *cast.TypeRef, table *Table, depth int) (scalar, *LayoutError) {
	if depth > maxTypedefDepth {
		return scalar{}, &LayoutError{Kind: LayoutErrRecursive, Dep: t.Name}
	}
	switch t.Kind {
	case cast.TypePrimitive:
		if s, ok := c.Platform.Scalar(t.Name); ok {
			if t.Size > 0 && t.Align > 0 {
				// provider facts win: they encode the real ABI (e.g. -malign-double)
				return scalar{Size: t.Size, Align: t.Align}, nil
			}
			return scalar{Size: s.Size, Align: s.Align}, nil
		}
		if t.Size > 0 {
			a := t.Align
			if a <= 0 {
				a = t.Size
			}
			return scalar{Size: t.Size, Align: a}, nil
		}
		return scalar{}, &LayoutError{Kind: LayoutErrUnknownScalar, Dep: t.Name}

	case cast.TypePointer, cast.TypeFunctionPointer:
		p := c.Platform.Pointer()
		return scalar{Size: p.Size, Align: p.Align}, nil

	case cast.TypeArray:
		if t.Inner == nil {
			return scalar{}, &LayoutError{Kind: LayoutErrInvalidArray, Err: errors.New("array without element type")}
		}
		var elem scalar
		if t.Inner.Anonymous != nil {
			nested, err := c.record(t.Inner.Anonymous, table)
			if err != nil {
				return scalar{}, err
			}
			elem = scalar{Size: nested.Size, Align: nested.Align}
		} else {
			var err *LayoutError
			if elem, err = c.typeLayout(t.Inner, table, depth+1); err != nil {
				return scalar{}, err
			}
		}
		n := t.ArrayLength
		if n < 0 {
			return scalar{}, &LayoutError{Kind: LayoutErrInvalidArray, Err: fmt.Errorf("length %d", t.ArrayLength)}
		}
		// sizes stay within int32 so every platform can represent them
		count, cerr := safecast.Conv[int32](n)
		if cerr != nil {
			return scalar{}, &LayoutError{Kind: LayoutErrInvalidArray, Err: fmt.Errorf("length %d: %w", n, cerr)}
		}
		total, cerr := safecast.Conv[int32](int64(elem.Size) * int64(count))
		if cerr != nil {
			return scalar{}, &LayoutError{Kind: LayoutErrInvalidArray, Err: fmt.Errorf("%d x %d bytes overflows", n, elem.Size)}
		}
		return scalar{Size: int(total), Align: max(elem.Align, 1)}, nil

	case cast.TypeRecord:
		if info, ok := table.Get(t.Name); ok {
			return scalar{Size: info.Size, Align: info.Align}, nil
		}
		if c.AST != nil {
			if _, ok := c.AST.Lookup(cast.KindOpaque, t.Name); ok {
				return scalar{}, &LayoutError{Kind: LayoutErrIncomplete, Dep: t.Name}
			}
		}
		return scalar{}, &LayoutError{Kind: LayoutErrMissingDependency, Dep: t.Name}

	case cast.TypeEnum:
		size := t.Size
		if size <= 0 && c.AST != nil {
			if d, ok := c.AST.Lookup(cast.KindEnum, t.Name); ok {
				size = d.(*cast.Enum).Size
			}
		}
		if size <= 0 {
			size = 4
		}
		return scalar{Size: size, Align: size}, nil

	case cast.TypeTypedef:
		if c.AST != nil {
			if d, ok := c.AST.Lookup(cast.KindTypedef, t.Name); ok {
				under := &d.(*cast.Typedef).Underlying
				if under.Anonymous != nil {
					nested, err := c.record(under.Anonymous, table)
					if err != nil {
						return scalar{}, err
					}
					return scalar{Size: nested.Size, Align: nested.Align}, nil
				}
				return c.typeLayout(under, table, depth+1)
			}
		}
		if t.Size > 0 {
			a := t.Align
			if a <= 0 {
				a = t.Size
			}
			return scalar{Size: t.Size, Align: a}, nil
		}
		return scalar{}, &LayoutError{Kind: LayoutErrMissingDependency, Dep: t.Name}

	case cast.TypeOpaque:
		return scalar{}, &LayoutError{Kind: LayoutErrIncomplete, Dep: t.Name}

	default:
		return scalar{}, &LayoutError{Kind: LayoutErrUnknownScalar, Dep: t.Name}
	}
}

package layout

import (
	"fmt"

	"bindforge/internal/cast"
)

// bitRun collects consecutive bitfields that pack into the same bytes.
// Offsets of pending fields hold absolute bit positions until flush.
type bitRun struct {
	open    bool
	start   int // byte
	bit     int // next free bit, absolute
	pending []FieldLayout
}

// sysvStructFields lays out a struct by the Itanium/SysV rules. A bitfield is
// placed at the next free bit unless it would cross an alignment boundary of
// its own type; the next ordinary field starts at the byte after the last used
// bit. Runs of bitfields are backed by the smallest integer covering their
// bytes, widened only into bytes nothing else uses.
func (c *Calculator) sysvStructFields(rec *cast.Record, table *Table, info *Info) *LayoutError {
	cursor := 0 // end of the last placed storage
	pos := 0    // first byte the next member may use
	align := 1
	units := 0
	var run bitRun

	flush := func(limit int) *LayoutError {
		end := (run.bit + 7) / 8
		span := end - run.start
		size := 1
		for size < span {
			size *= 2
		}
		if size > 8 || run.start+size > limit {
			return &LayoutError{Kind: LayoutErrInvalidBitfield, Record: rec.Name, Field: run.pending[0].Name,
				Err: fmt.Errorf("bitfields at bytes %d..%d cannot be backed by one integer", run.start, end)}
		}
		ua := size
		for run.start%ua != 0 {
			ua /= 2
		}
		for i, fl := range run.pending {
			fl.BitOffset = fl.Offset - run.start*8
			fl.Offset, fl.Size, fl.Align, fl.Unit = run.start, size, ua, units
			if i == 0 {
				fl.Padding = run.start - cursor
			}
			info.Fields = append(info.Fields, fl)
		}
		units++
		cursor = run.start + size
		pos = max(pos, cursor)
		run = bitRun{}
		return nil
	}

	for i := range rec.Fields {
		f := &rec.Fields[i]
		fl, nested, err := c.fieldType(rec, f, table)
		if err != nil {
			return err
		}
		natural := max(fl.Align, 1)
		fAlign := natural
		if rec.Packed {
			fAlign = 1
		}

		if f.Bitfield {
			if f.BitWidth > fl.Size*8 {
				return &LayoutError{Kind: LayoutErrInvalidBitfield, Record: rec.Name, Field: f.Name,
					Err: fmt.Errorf("width %d exceeds %d-bit storage unit", f.BitWidth, fl.Size*8)}
			}
			if f.BitWidth == 0 {
				// zero width moves to the next boundary of its type and does
				// not raise the struct alignment
				if run.open {
					next := roundUp(run.bit, natural*8) / 8
					if err := flush(next); err != nil {
						return err
					}
					pos = max(pos, next)
				}
				pos = roundUp(pos, natural)
				continue
			}
			if !run.open {
				run = bitRun{open: true, start: pos, bit: pos * 8}
			} else if !rec.Packed && run.bit%(fAlign*8)+f.BitWidth > fl.Size*8 {
				next := roundUp(run.bit, fAlign*8)
				if err := flush(next / 8); err != nil {
					return err
				}
				pos = max(pos, next/8)
				run = bitRun{open: true, start: pos, bit: pos * 8}
			} else if (run.bit+f.BitWidth+7)/8-run.start > 8 {
				// packed runs may outgrow a ulong; split on a byte boundary
				if run.bit%8 != 0 {
					return &LayoutError{Kind: LayoutErrInvalidBitfield, Record: rec.Name, Field: f.Name,
						Err: fmt.Errorf("packed bitfield run at byte %d exceeds 8 bytes", run.start)}
				}
				next := run.bit / 8
				if err := flush(next); err != nil {
					return err
				}
				run = bitRun{open: true, start: next, bit: next * 8}
			}
			run.pending = append(run.pending, FieldLayout{
				Name: f.Name, Index: i, Offset: run.bit,
				Bitfield: true, BitWidth: f.BitWidth,
			})
			run.bit += f.BitWidth
			if f.Name != "" {
				align = max(align, fAlign)
			}
			continue
		}

		offset := roundUp(pos, fAlign)
		if run.open {
			offset = roundUp(max(pos, (run.bit+7)/8), fAlign)
			if err := flush(offset); err != nil {
				return err
			}
		}
		info.Fields = append(info.Fields, FieldLayout{
			Name: f.Name, Index: i,
			Offset: offset, Size: fl.Size, Align: fAlign, Padding: offset - cursor,
			Nested: nested,
		})
		cursor = offset + fl.Size
		pos = cursor
		align = max(align, fAlign)
	}

	if rec.AlignOverride > 0 {
		align = max(align, rec.AlignOverride)
	}
	if rec.Packed && rec.AlignOverride == 0 {
		align = 1
	}
	if run.open {
		pos = max(pos, (run.bit+7)/8)
		if err := flush(roundUp(pos, align)); err != nil {
			return err
		}
	}
	info.Align = align
	info.Size = roundUp(max(pos, cursor), align)
	info.TrailingPadding = info.Size - cursor
	return nil
}

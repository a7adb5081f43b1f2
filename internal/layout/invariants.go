package layout

import "fmt"

// CheckInvariants runs the layout invariants on a computed record:
// 1) size is a multiple of alignment and alignment is positive
// 2) every field is aligned: Offset % Align == 0
// 3) every field fits: Offset + Size <= Size(record)
// 4) for structs, sizes and padding add up:
//    sum(Size + Padding) + TrailingPadding == Size, each bitfield unit once
// 5) union members all start at offset 0
func CheckInvariants(info *Info) error {
	if info == nil {
		return fmt.Errorf("nil layout")
	}
	if info.Align <= 0 {
		return fmt.Errorf("alignment %d is not positive", info.Align)
	}
	if info.Size%info.Align != 0 {
		return fmt.Errorf("size %d is not a multiple of alignment %d", info.Size, info.Align)
	}
	if info.TrailingPadding < 0 {
		return fmt.Errorf("negative trailing padding %d", info.TrailingPadding)
	}

	total := 0
	lastUnit := -1
	for _, f := range info.Fields {
		if f.Align <= 0 {
			return fmt.Errorf("field %q: alignment %d is not positive", f.Name, f.Align)
		}
		if f.Offset%f.Align != 0 {
			return fmt.Errorf("field %q: offset %d is not a multiple of alignment %d", f.Name, f.Offset, f.Align)
		}
		if f.Offset+f.Size > info.Size {
			return fmt.Errorf("field %q: ends at %d past record size %d", f.Name, f.Offset+f.Size, info.Size)
		}
		if f.Padding < 0 {
			return fmt.Errorf("field %q: negative padding %d", f.Name, f.Padding)
		}
		if f.Bitfield && f.BitOffset+f.BitWidth > f.Size*8 {
			return fmt.Errorf("field %q: bits %d..%d outside %d-byte unit", f.Name, f.BitOffset, f.BitOffset+f.BitWidth, f.Size)
		}
		if f.Nested != nil {
			if err := CheckInvariants(f.Nested); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		if info.Union {
			if f.Offset != 0 {
				return fmt.Errorf("union member %q at offset %d", f.Name, f.Offset)
			}
			continue
		}
		if f.Bitfield {
			if f.Unit == lastUnit {
				continue
			}
			lastUnit = f.Unit
		}
		total += f.Size + f.Padding
	}
	if info.Union {
		return nil
	}
	if total+info.TrailingPadding != info.Size {
		return fmt.Errorf("fields and padding cover %d bytes, trailing padding %d, size %d", total, info.TrailingPadding, info.Size)
	}
	return nil
}

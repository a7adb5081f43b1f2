package platform

// ScalarLayout is the size and alignment of a C scalar on one platform.
type ScalarLayout struct {
	Size  int
	Align int
}

// Scalar returns the layout of a C scalar type spelled the way the front end
// spells it ("unsigned long", "int32_t", "size_t"). Unknown spellings return
// false so the caller can report a missing fact instead of guessing.
func (p Platform) Scalar(name string) (ScalarLayout, bool) {
	switch name {
	case "void":
		return ScalarLayout{Size: 0, Align: 1}, true
	case "_Bool", "bool", "char", "signed char", "unsigned char", "int8_t", "uint8_t":
		return ScalarLayout{Size: 1, Align: 1}, true
	case "short", "unsigned short", "int16_t", "uint16_t", "char16_t":
		return ScalarLayout{Size: 2, Align: 2}, true
	case "int", "unsigned int", "int32_t", "uint32_t", "float", "char32_t":
		return ScalarLayout{Size: 4, Align: 4}, true
	case "long", "unsigned long":
		return ScalarLayout{Size: p.LongSize, Align: p.LongSize}, true
	case "long long", "unsigned long long", "int64_t", "uint64_t", "double":
		return ScalarLayout{Size: 8, Align: p.Int64Align}, true
	case "size_t", "ssize_t", "intptr_t", "uintptr_t", "ptrdiff_t":
		return ScalarLayout{Size: p.PtrSize, Align: p.PtrAlign}, true
	case "wchar_t":
		return ScalarLayout{Size: p.WCharSize, Align: p.WCharSize}, true
	}
	return ScalarLayout{}, false
}

// Pointer returns the layout of any data or function pointer.
func (p Platform) Pointer() ScalarLayout {
	return ScalarLayout{Size: p.PtrSize, Align: p.PtrAlign}
}

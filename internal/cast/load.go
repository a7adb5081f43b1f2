package cast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"bindforge/internal/diag"
	"bindforge/internal/platform"
)

// Document is the decoded but not yet validated form of a platform file.
// It is what the driver's AST cache stores.
type Document struct {
	Platform     *string    `json:"platform"`
	File         string     `json:"file"`
	Declarations []wireDecl `json:"declarations"`
}

type wireLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type wireDecl struct {
	Kind     string        `json:"kind"`
	Name     *string       `json:"name"`
	Location *wireLocation `json:"location,omitempty"`

	// record
	Union         bool        `json:"union,omitempty"`
	Size          *int        `json:"size,omitempty"`
	Align         *int        `json:"align,omitempty"`
	Packed        bool        `json:"packed,omitempty"`
	AlignOverride int         `json:"align_override,omitempty"`
	Fields        []wireField `json:"fields,omitempty"`

	// enum
	Values     []wireEnumValue `json:"values,omitempty"`
	Extensible bool            `json:"extensible,omitempty"`

	// function, function_pointer
	CallingConvention string      `json:"calling_convention,omitempty"`
	ReturnType        *wireType   `json:"return_type,omitempty"`
	Parameters        []wireParam `json:"parameters,omitempty"`
	Variadic          bool        `json:"variadic,omitempty"`

	// typedef
	Underlying *wireType `json:"underlying,omitempty"`

	// macro
	Value     *string `json:"value,omitempty"`
	ValueKind string  `json:"value_kind,omitempty"`
}

type wireType struct {
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Size        *int      `json:"size,omitempty"`
	Align       *int      `json:"align,omitempty"`
	Const       bool      `json:"const,omitempty"`
	Inner       *wireType `json:"inner,omitempty"`
	ArrayLength *int      `json:"array_length,omitempty"`
	Record      *wireDecl `json:"record,omitempty"`
}

type wireField struct {
	Name     *string       `json:"name"`
	Type     *wireType     `json:"type"`
	Offset   *int          `json:"offset,omitempty"`
	BitWidth *int          `json:"bit_width,omitempty"`
	Location *wireLocation `json:"location,omitempty"`
}

type wireParam struct {
	Name string    `json:"name"`
	Type *wireType `json:"type"`
}

type wireEnumValue struct {
	Name  *string `json:"name"`
	Value *int64  `json:"value"`
}

// LoadFile reads one platform document from disk.
func LoadFile(path string) (*AST, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: LoadErrIO, File: path, Err: err}
	}
	return Load(bytes.NewReader(data), path)
}

// Load decodes and validates one platform document. The document is untrusted:
// every structural problem comes back as a *LoadError, never as a panic.
func Load(r io.Reader, name string) (*AST, error) {
	doc, err := Decode(r, name)
	if err != nil {
		return nil, err
	}
	return Build(doc, name)
}

// Decode reads the JSON form of a document. Unknown fields and trailing data
// are rejected; nothing else is checked.
func Decode(r io.Reader, name string) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Kind: LoadErrMalformed, File: name, Err: err}
	}
	if dec.More() {
		return nil, &LoadError{Kind: LoadErrMalformed, File: name, Err: errors.New("trailing data after document")}
	}
	return &doc, nil
}

// Build validates a decoded document and produces its AST.
func Build(doc *Document, name string) (*AST, error) {
	l := &loader{file: name}
	if doc == nil {
		return nil, l.fail(LoadErrMalformed, "", errors.New("empty document"))
	}
	if doc.Platform == nil || strings.TrimSpace(*doc.Platform) == "" {
		return nil, l.fail(LoadErrMissingField, "platform", nil)
	}
	p, err := platform.Parse(*doc.Platform)
	if err != nil {
		return nil, l.fail(LoadErrUnknownPlatform, "platform", err)
	}
	header := doc.File
	if header == "" {
		header = name
	}
	l.header = header

	decls := make([]Decl, 0, len(doc.Declarations))
	seen := make(map[Key]string, len(doc.Declarations))
	for i := range doc.Declarations {
		path := fmt.Sprintf("declarations[%d]", i)
		d, err := l.decl(&doc.Declarations[i], path, false)
		if err != nil {
			return nil, err
		}
		k := Key{Kind: d.Kind(), Name: d.DeclName()}
		if prev, dup := seen[k]; dup {
			return nil, l.fail(LoadErrDuplicate, path, fmt.Errorf("%s %q already declared at %s", k.Kind, k.Name, prev))
		}
		seen[k] = path
		decls = append(decls, d)
	}
	return NewAST(p, header, decls), nil
}

type loader struct {
	file   string
	header string
}

func (l *loader) fail(kind LoadErrorKind, path string, err error) *LoadError {
	return &LoadError{Kind: kind, File: l.file, Path: path, Err: err}
}

func (l *loader) location(w *wireLocation) diag.Location {
	if w == nil {
		return diag.Location{File: l.header}
	}
	file := w.File
	if file == "" {
		file = l.header
	}
	return diag.Location{File: file, Line: w.Line, Column: w.Column}
}

func (l *loader) decl(w *wireDecl, path string, inline bool) (Decl, error) {
	kind := parseKind(w.Kind)
	if kind == KindInvalid {
		return nil, l.fail(LoadErrUnknownKind, path+".kind", fmt.Errorf("%q", w.Kind))
	}
	name := ""
	if w.Name != nil {
		name = strings.TrimSpace(*w.Name)
	}
	// inline anonymous records are named by their parent field later
	if name == "" && !inline {
		return nil, l.fail(LoadErrMissingField, path+".name", nil)
	}
	loc := l.location(w.Location)

	switch kind {
	case KindRecord:
		return l.record(w, path, name, loc, inline)
	case KindEnum:
		return l.enum(w, path, name, loc)
	case KindFunction:
		ret, params, err := l.signature(w, path)
		if err != nil {
			return nil, err
		}
		return &Function{
			Name:              name,
			CallingConvention: w.CallingConvention,
			Return:            ret,
			Params:            params,
			Variadic:          w.Variadic,
			Location:          loc,
		}, nil
	case KindFunctionPointer:
		ret, params, err := l.signature(w, path)
		if err != nil {
			return nil, err
		}
		fp := &FunctionPointer{
			Name:              name,
			CallingConvention: w.CallingConvention,
			Return:            ret,
			Params:            params,
			Location:          loc,
		}
		if fp.Size, err = l.nonNegative(w.Size, path+".size"); err != nil {
			return nil, err
		}
		if fp.Align, err = l.nonNegative(w.Align, path+".align"); err != nil {
			return nil, err
		}
		return fp, nil
	case KindTypedef:
		if w.Underlying == nil {
			return nil, l.fail(LoadErrMissingField, path+".underlying", nil)
		}
		under, err := l.typeRef(w.Underlying, path+".underlying")
		if err != nil {
			return nil, err
		}
		return &Typedef{Name: name, Underlying: under, Location: loc}, nil
	case KindOpaque:
		return &Opaque{Name: name, Location: loc}, nil
	case KindMacro:
		return l.macro(w, path, name, loc)
	default:
		return nil, l.fail(LoadErrUnknownKind, path+".kind", fmt.Errorf("%q", w.Kind))
	}
}

func (l *loader) record(w *wireDecl, path, name string, loc diag.Location, inline bool) (*Record, error) {
	rec := &Record{
		Name:          name,
		Union:         w.Union,
		Packed:        w.Packed,
		AlignOverride: w.AlignOverride,
		Anonymous:     inline && name == "",
		Location:      loc,
		Fields:        make([]Field, 0, len(w.Fields)),
	}
	var err error
	if rec.Size, err = l.nonNegative(w.Size, path+".size"); err != nil {
		return nil, err
	}
	if rec.Align, err = l.nonNegative(w.Align, path+".align"); err != nil {
		return nil, err
	}
	if rec.AlignOverride < 0 {
		return nil, l.fail(LoadErrMalformed, path+".align_override", fmt.Errorf("negative value %d", rec.AlignOverride))
	}
	for i := range w.Fields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, i)
		wf := &w.Fields[i]
		f := Field{Location: l.location(wf.Location)}
		if wf.Name != nil {
			f.Name = *wf.Name
		}
		if wf.Type == nil {
			return nil, l.fail(LoadErrMissingField, fpath+".type", nil)
		}
		if f.Type, err = l.typeRef(wf.Type, fpath+".type"); err != nil {
			return nil, err
		}
		// only inline anonymous aggregates and bitfields may omit a name
		if f.Name == "" && f.Type.Anonymous == nil && wf.BitWidth == nil {
			return nil, l.fail(LoadErrMissingField, fpath+".name", nil)
		}
		if wf.Offset != nil {
			if *wf.Offset < 0 {
				return nil, l.fail(LoadErrMalformed, fpath+".offset", fmt.Errorf("negative offset %d", *wf.Offset))
			}
			f.Offset = *wf.Offset
			f.HasOffset = true
		}
		if wf.BitWidth != nil {
			if *wf.BitWidth < 0 {
				return nil, l.fail(LoadErrMalformed, fpath+".bit_width", fmt.Errorf("negative width %d", *wf.BitWidth))
			}
			f.Bitfield = true
			f.BitWidth = *wf.BitWidth
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec, nil
}

func (l *loader) enum(w *wireDecl, path, name string, loc diag.Location) (*Enum, error) {
	e := &Enum{Name: name, Extensible: w.Extensible, Location: loc}
	var err error
	if e.Size, err = l.nonNegative(w.Size, path+".size"); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(w.Values))
	for i, v := range w.Values {
		vpath := fmt.Sprintf("%s.values[%d]", path, i)
		if v.Name == nil || *v.Name == "" {
			return nil, l.fail(LoadErrMissingField, vpath+".name", nil)
		}
		if v.Value == nil {
			return nil, l.fail(LoadErrMissingField, vpath+".value", nil)
		}
		if _, dup := seen[*v.Name]; dup {
			return nil, l.fail(LoadErrDuplicate, vpath, fmt.Errorf("enum value %q", *v.Name))
		}
		seen[*v.Name] = struct{}{}
		e.Values = append(e.Values, EnumValue{Name: *v.Name, Value: *v.Value})
	}
	return e, nil
}

func (l *loader) signature(w *wireDecl, path string) (TypeRef, []Param, error) {
	if w.ReturnType == nil {
		return TypeRef{}, nil, l.fail(LoadErrMissingField, path+".return_type", nil)
	}
	ret, err := l.typeRef(w.ReturnType, path+".return_type")
	if err != nil {
		return TypeRef{}, nil, err
	}
	params := make([]Param, 0, len(w.Parameters))
	for i, wp := range w.Parameters {
		ppath := fmt.Sprintf("%s.parameters[%d]", path, i)
		if wp.Type == nil {
			return TypeRef{}, nil, l.fail(LoadErrMissingField, ppath+".type", nil)
		}
		t, err := l.typeRef(wp.Type, ppath+".type")
		if err != nil {
			return TypeRef{}, nil, err
		}
		params = append(params, Param{Name: wp.Name, Type: t})
	}
	return ret, params, nil
}

func (l *loader) typeRef(w *wireType, path string) (TypeRef, error) {
	kind := parseTypeKind(w.Kind)
	if kind == TypeInvalid {
		return TypeRef{}, l.fail(LoadErrUnknownKind, path+".kind", fmt.Errorf("%q", w.Kind))
	}
	t := TypeRef{Name: strings.TrimSpace(w.Name), Kind: kind, Const: w.Const}
	var err error
	if t.Size, err = l.nonNegative(w.Size, path+".size"); err != nil {
		return TypeRef{}, err
	}
	if t.Align, err = l.nonNegative(w.Align, path+".align"); err != nil {
		return TypeRef{}, err
	}

	switch kind {
	case TypePointer, TypeArray:
		if w.Inner == nil {
			return TypeRef{}, l.fail(LoadErrInvalidType, path+".inner", fmt.Errorf("%s without element type", kind))
		}
		inner, err := l.typeRef(w.Inner, path+".inner")
		if err != nil {
			return TypeRef{}, err
		}
		t.Inner = &inner
		if kind == TypeArray {
			if w.ArrayLength == nil {
				return TypeRef{}, l.fail(LoadErrMissingField, path+".array_length", nil)
			}
			if *w.ArrayLength < 0 {
				return TypeRef{}, l.fail(LoadErrInvalidType, path+".array_length", fmt.Errorf("negative length %d", *w.ArrayLength))
			}
			t.ArrayLength = *w.ArrayLength
		}
	case TypeRecord:
		if w.Record != nil {
			d, err := l.decl(w.Record, path+".record", true)
			if err != nil {
				return TypeRef{}, err
			}
			rec, ok := d.(*Record)
			if !ok {
				return TypeRef{}, l.fail(LoadErrInvalidType, path+".record", fmt.Errorf("inline declaration is a %s", d.Kind()))
			}
			t.Anonymous = rec
			if t.Name == "" {
				t.Name = rec.Name
			}
			break
		}
		if t.Name == "" {
			return TypeRef{}, l.fail(LoadErrMissingField, path+".name", nil)
		}
	default:
		if t.Name == "" {
			return TypeRef{}, l.fail(LoadErrMissingField, path+".name", nil)
		}
	}
	return t, nil
}

func (l *loader) macro(w *wireDecl, path, name string, loc diag.Location) (*Macro, error) {
	if w.Value == nil {
		return nil, l.fail(LoadErrMissingField, path+".value", nil)
	}
	m := &Macro{Name: name, Raw: *w.Value, Location: loc}
	switch w.ValueKind {
	case "", "int":
		m.ValueKind = MacroInt
		i, u, unsigned, err := ParseInteger(*w.Value)
		if err != nil {
			return nil, l.fail(LoadErrMalformed, path+".value", err)
		}
		m.Int, m.Uint, m.Unsigned = i, u, unsigned
	case "float":
		m.ValueKind = MacroFloat
		s := strings.TrimRight(strings.TrimSpace(*w.Value), "fFlL")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, l.fail(LoadErrMalformed, path+".value", err)
		}
		m.Float = f
	case "string":
		m.ValueKind = MacroString
	case "bool":
		m.ValueKind = MacroBool
		switch strings.TrimSpace(*w.Value) {
		case "true", "1":
			m.Bool = true
		case "false", "0":
		default:
			return nil, l.fail(LoadErrMalformed, path+".value", fmt.Errorf("%q is not a boolean", *w.Value))
		}
	default:
		return nil, l.fail(LoadErrUnknownKind, path+".value_kind", fmt.Errorf("%q", w.ValueKind))
	}
	return m, nil
}

func (l *loader) nonNegative(v *int, path string) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 {
		return 0, l.fail(LoadErrMalformed, path, fmt.Errorf("negative value %d", *v))
	}
	return *v, nil
}

// ParseInteger parses a C integer literal as the front end prints it:
// optional sign, optional surrounding parentheses, 0x/0b/0 prefixes and
// u/U/l/L suffixes. Values beyond int64 come back in u with unsigned set.
func ParseInteger(raw string) (i int64, u uint64, unsigned bool, err error) {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	lower := strings.ToLower(s)
	suffixUnsigned := false
	for strings.HasSuffix(lower, "u") || strings.HasSuffix(lower, "l") {
		if strings.HasSuffix(lower, "u") {
			suffixUnsigned = true
		}
		lower = lower[:len(lower)-1]
	}
	if lower == "" {
		return 0, 0, false, fmt.Errorf("%q is not an integer literal", raw)
	}
	base := 10
	digits := lower
	switch {
	case strings.HasPrefix(lower, "0x"):
		base, digits = 16, lower[2:]
	case strings.HasPrefix(lower, "0b"):
		base, digits = 2, lower[2:]
	case len(lower) > 1 && lower[0] == '0':
		base, digits = 8, lower[1:]
	}
	mag, perr := strconv.ParseUint(digits, base, 64)
	if perr != nil {
		return 0, 0, false, fmt.Errorf("%q is not an integer literal: %w", raw, perr)
	}
	if neg {
		if mag > 1<<63 {
			return 0, 0, false, fmt.Errorf("%q overflows int64", raw)
		}
		if mag == 1<<63 {
			return -1 << 63, 0, false, nil
		}
		signed, cerr := safecast.Conv[int64](mag)
		if cerr != nil {
			return 0, 0, false, cerr
		}
		return -signed, 0, false, nil
	}
	if signed, cerr := safecast.Conv[int64](mag); cerr == nil && !suffixUnsigned {
		return signed, mag, false, nil
	}
	// beyond int64: keep the two's complement bit pattern in i
	return int64(mag), mag, true, nil //nolint:gosec
}

package bind

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/layout"
	"bindforge/internal/names"
	"bindforge/internal/unify"
)

// Options configures the C# flavor of the bindings.
type Options struct {
	// FunctionPointers selects delegate* unmanaged[...] over delegate
	// wrappers with an IntPtr field.
	FunctionPointers bool
	// ExtensibleEnums adds the sizing sentinel to every enum, not only to
	// enums the front end marked extensible.
	ExtensibleEnums bool
	// ClassName is the generated static class; no alias may take its name.
	ClassName string
}

// emission sections, in output order
const (
	sectionFunctions = iota
	sectionMacros
	sectionStructs
	sectionEnums
	sectionOpaque
	sectionAliases
	sectionFunctionPointers
	sectionCount
)

type mapper struct {
	opts  Options
	table *names.Table
	r     diag.Reporter
	// aliases: typedef C name -> identifier, for typedefs that are emitted
	aliases map[string]string
	// dropped: typedef C name -> why it is resolved through instead
	dropped map[string]error
}

var errAliasNameTaken = errors.New("the name is used by an emitted type")

// Map turns canonical nodes into binding nodes in emission order. Nodes that
// cannot be represented are dropped with a diagnostic; their siblings are
// unaffected.
func Map(nodes []*unify.Node, table *names.Table, opts Options, r diag.Reporter) []Node {
	m := &mapper{
		opts:    opts,
		table:   table,
		r:       r,
		aliases: make(map[string]string),
		dropped: make(map[string]error),
	}
	m.planAliases(nodes)

	var sections [sectionCount][]Node
	groups := make(map[string]*PseudoEnum)
	for _, n := range nodes {
		mn, ok := table.Lookup(n.Key())
		if !ok || table.Skipped(n.Key()) {
			continue
		}
		h := header(n, mn.Target)

		var (
			out     Node
			err     error
			section int
		)
		switch n.Kind {
		case cast.KindFunction:
			section = sectionFunctions
			out, err = m.function(n, h)
		case cast.KindMacro:
			section = sectionMacros
			var mc *MacroConstant
			mc, err = m.macro(n, h)
			if err == nil {
				if g, grouped := table.PseudoEnumOf(n.Name); grouped {
					pe, seen := groups[g.Prefix]
					if !seen {
						pe = &PseudoEnum{Header: h}
						pe.Name, pe.CName = g.Name, g.Prefix
						groups[g.Prefix] = pe
						sections[section] = append(sections[section], pe)
					}
					pe.Constants = append(pe.Constants, mc)
					continue
				}
				out = mc
			}
		case cast.KindRecord:
			section = sectionStructs
			out, err = m.record(n, h)
		case cast.KindEnum:
			section = sectionEnums
			out, err = m.enum(n, h)
		case cast.KindOpaque:
			section = sectionOpaque
			out = &OpaqueType{Header: h}
		case cast.KindTypedef:
			section = sectionAliases
			out, err = m.alias(n, h)
		case cast.KindFunctionPointer:
			section = sectionFunctionPointers
			out, err = m.functionPointer(n, h)
		default:
			continue
		}
		if err != nil {
			m.fail(n, err)
			continue
		}
		if out == nil {
			continue
		}
		Logger().Debug("mapped",
			zap.String("node", n.Name),
			zap.Stringer("kind", out.Kind()),
			zap.String("target", out.Head().Name))
		sections[section] = append(sections[section], out)
	}

	var result []Node
	for _, s := range sections {
		result = append(result, s...)
	}
	return result
}

func header(n *unify.Node, target string) Header {
	h := Header{
		Name:      target,
		CName:     n.Name,
		CKind:     n.Kind,
		Location:  n.Decl.Loc(),
		Platforms: slices.Clone(n.Platforms),
		Partial:   n.Partial,
		Divergent: n.Divergent,
	}
	if n.Divergent {
		for _, v := range n.Variants() {
			h.Variants = append(h.Variants, v.Platform.Triple+": "+v.Describe())
		}
		for _, t := range n.LayoutFailed {
			h.Variants = append(h.Variants, t+": layout failed")
		}
	}
	return h
}

func (m *mapper) fail(n *unify.Node, err error) {
	code := diag.MapUnrepresentableType
	var me *MappingError
	if errors.As(err, &me) {
		code = me.Code()
	}
	diag.ReportError(m.r, code, n.Decl.Loc(), fmt.Sprintf("%s %v; declaration dropped", n.Kind, err)).Emit()
}

func (m *mapper) types(n *unify.Node) *typeMapper {
	v := n.Representative()
	return &typeMapper{
		platform: v.Platform,
		ast:      v.AST,
		layouts:  v.Layouts,
		table:    m.table,
		aliases:  m.aliases,
		decl:     n.Name,
	}
}

// planAliases decides which typedefs are emitted as alias structs before
// anything is mapped, so every reference agrees on it. An alias is emitted
// when its name is not taken by an emitted type and its underlying type maps;
// the check repeats until no alias is removed.
func (m *mapper) planAliases(nodes []*unify.Node) {
	emitted := map[string]struct{}{"LibraryName": {}}
	if m.opts.ClassName != "" {
		emitted[m.opts.ClassName] = struct{}{}
	}
	var typedefs []*unify.Node
	for _, n := range nodes {
		switch n.Kind {
		case cast.KindRecord, cast.KindEnum, cast.KindOpaque, cast.KindFunctionPointer:
			if mn, ok := m.table.Lookup(n.Key()); ok && !m.table.Skipped(n.Key()) {
				emitted[mn.Target] = struct{}{}
			}
		case cast.KindTypedef:
			typedefs = append(typedefs, n)
		}
	}
	for _, n := range typedefs {
		mn, ok := m.table.Lookup(n.Key())
		if !ok {
			continue
		}
		if _, taken := emitted[mn.Target]; taken {
			m.dropped[n.Name] = errAliasNameTaken
			continue
		}
		m.aliases[n.Name] = mn.Target
	}
	for changed := true; changed; {
		changed = false
		for _, n := range typedefs {
			if _, ok := m.aliases[n.Name]; !ok {
				continue
			}
			if _, err := m.aliasUnderlying(n); err != nil {
				delete(m.aliases, n.Name)
				m.dropped[n.Name] = err
				changed = true
			}
		}
	}
}

func (m *mapper) aliasUnderlying(n *unify.Node) (string, error) {
	td := n.Decl.(*cast.Typedef)
	tm := m.types(n)
	r := tm.ast.Resolve(&td.Underlying)
	switch {
	case r == nil:
		return "", tm.unresolved(&td.Underlying)
	case r.Kind == cast.TypePrimitive && r.Name == "void":
		return "", tm.unrepresentable("alias of void")
	case r.Kind == cast.TypeArray:
		return "", tm.unrepresentable("alias of array %s", r.Spelling())
	case r.Anonymous != nil:
		return "", tm.unrepresentable("alias of an anonymous aggregate")
	}
	return tm.csType(&td.Underlying, false)
}

func (m *mapper) alias(n *unify.Node, h Header) (Node, error) {
	if reason, ok := m.dropped[n.Name]; ok {
		var me *MappingError
		if errors.As(reason, &me) && me.Kind != MapErrUnrepresentable {
			return nil, reason
		}
		diag.ReportInfo(m.r, diag.MapAliasSkipped, n.Decl.Loc(),
			fmt.Sprintf("typedef %q is not emitted (%v); references use the underlying type", n.Name, reason)).
			Emit()
		return nil, nil
	}
	underlying, err := m.aliasUnderlying(n)
	if err != nil {
		return nil, err
	}
	td := n.Decl.(*cast.Typedef)
	v := n.Representative()
	size, align, err := layout.New(v.AST).SizeOf(&td.Underlying, v.Layouts)
	if err != nil {
		return nil, &MappingError{Kind: MapErrUnrepresentable, Decl: n.Name, Detail: err.Error()}
	}
	return &TypeAlias{Header: h, Underlying: underlying, Size: size, Align: align}, nil
}

// convention is a C calling convention as the two C# spellings need it.
type convention struct {
	interop   string // CallingConvention enum member
	unmanaged string // delegate* unmanaged[...] modifier
}

func callingConvention(decl, cc string) (convention, error) {
	switch strings.ToLower(strings.TrimSpace(cc)) {
	case "", "c", "cdecl", "default":
		return convention{interop: "Cdecl", unmanaged: "Cdecl"}, nil
	case "stdcall", "x86stdcall":
		return convention{interop: "StdCall", unmanaged: "Stdcall"}, nil
	case "fastcall", "x86fastcall":
		return convention{interop: "FastCall", unmanaged: "Fastcall"}, nil
	case "thiscall", "x86thiscall":
		return convention{interop: "ThisCall", unmanaged: "Thiscall"}, nil
	}
	return convention{}, &MappingError{Kind: MapErrUnknownCallingConvention, Decl: decl, Detail: cc}
}

func (m *mapper) params(tm *typeMapper, ps []cast.Param) ([]Param, error) {
	// f(void)
	if len(ps) == 1 && ps[0].Name == "" && ps[0].Type.Kind == cast.TypePrimitive && ps[0].Type.Name == "void" {
		return nil, nil
	}
	out := make([]Param, 0, len(ps))
	for i := range ps {
		p := &ps[i]
		cs, err := tm.csType(&p.Type, true)
		if err != nil {
			return nil, err
		}
		name := names.Sanitize(p.Name)
		if p.Name == "" {
			name = "unnamed" + strconv.Itoa(i)
		}
		out = append(out, Param{Name: name, Type: cs})
	}
	return out, nil
}

func variadicReason(fn *cast.Function) string {
	if fn.Variadic {
		return "C-variadic signature"
	}
	for i := range fn.Params {
		if fn.Params[i].Type.IsVaList() {
			return fmt.Sprintf("parameter %d is a va_list", i)
		}
	}
	return ""
}

func (m *mapper) function(n *unify.Node, h Header) (Node, error) {
	fn := n.Decl.(*cast.Function)
	if reason := variadicReason(fn); reason != "" {
		diag.ReportInfo(m.r, diag.MapVariadicSkipped, fn.Location,
			fmt.Sprintf("function %q is skipped: %s", fn.Name, reason)).
			Emit()
		return nil, nil
	}
	cc, err := callingConvention(fn.Name, fn.CallingConvention)
	if err != nil {
		return nil, err
	}
	tm := m.types(n)
	ret, err := tm.csType(&fn.Return, false)
	if err != nil {
		return nil, err
	}
	params, err := m.params(tm, fn.Params)
	if err != nil {
		return nil, err
	}
	return &FunctionExtern{
		Header:            h,
		EntryPoint:        fn.Name,
		CallingConvention: cc.interop,
		Return:            ret,
		Params:            params,
	}, nil
}

func (m *mapper) functionPointer(n *unify.Node, h Header) (Node, error) {
	fp := n.Decl.(*cast.FunctionPointer)
	cc, err := callingConvention(fp.Name, fp.CallingConvention)
	if err != nil {
		return nil, err
	}
	tm := m.types(n)
	ret, err := tm.csType(&fp.Return, false)
	if err != nil {
		return nil, err
	}
	params, err := m.params(tm, fp.Params)
	if err != nil {
		return nil, err
	}
	return &FunctionPointer{
		Header:            h,
		Native:            m.opts.FunctionPointers,
		CallingConvention: cc.unmanaged,
		Return:            ret,
		Params:            params,
	}, nil
}

func (m *mapper) macro(n *unify.Node, h Header) (*MacroConstant, error) {
	mc := n.Decl.(*cast.Macro)
	out := &MacroConstant{Header: h}
	switch mc.ValueKind {
	case cast.MacroInt:
		out.Type, out.Value = integerConstant(mc)
	case cast.MacroFloat:
		out.Type = "double"
		switch {
		case math.IsNaN(mc.Float):
			out.Value = "double.NaN"
		case math.IsInf(mc.Float, 1):
			out.Value = "double.PositiveInfinity"
		case math.IsInf(mc.Float, -1):
			out.Value = "double.NegativeInfinity"
		default:
			out.Value = strconv.FormatFloat(mc.Float, 'g', -1, 64)
		}
	case cast.MacroString:
		out.Type, out.Value = "string", StringLiteral(unquote(mc.Raw))
	case cast.MacroBool:
		out.Type, out.Value = "bool", strconv.FormatBool(mc.Bool)
	default:
		return nil, &MappingError{Kind: MapErrUnrepresentable, Decl: mc.Name, Detail: "macro value of unknown kind"}
	}
	return out, nil
}

// integerConstant picks the narrowest of int, uint, long and ulong.
func integerConstant(mc *cast.Macro) (typ, value string) {
	if mc.Unsigned {
		if mc.Uint <= math.MaxUint32 {
			return "uint", strconv.FormatUint(mc.Uint, 10)
		}
		return "ulong", strconv.FormatUint(mc.Uint, 10)
	}
	v := mc.Int
	switch {
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return "int", strconv.FormatInt(v, 10)
	case v > 0 && v <= math.MaxUint32:
		return "uint", strconv.FormatInt(v, 10)
	}
	return "long", strconv.FormatInt(v, 10)
}

func unquote(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return raw
}

// StringLiteral renders s as a regular C# string literal.
func StringLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// sentinelName is the extensible enum member that forces 32-bit storage.
func sentinelName(enum string) string {
	upper := cases.Upper(language.English)
	return "_" + upper.String(strings.TrimPrefix(enum, "@")) + "_FORCE_U32"
}

func (m *mapper) enum(n *unify.Node, h Header) (Node, error) {
	e := n.Decl.(*cast.Enum)
	if e.Size != 0 && e.Size != 4 {
		return nil, &MappingError{Kind: MapErrUnrepresentable, Decl: e.Name,
			Detail: fmt.Sprintf("enum storage of %d bytes", e.Size)}
	}
	underlying := "int"
	negative := false
	for _, v := range e.Values {
		if v.Value < math.MinInt32 || v.Value > math.MaxUint32 {
			return nil, &MappingError{Kind: MapErrUnrepresentable, Decl: e.Name,
				Detail: fmt.Sprintf("enumerator %s = %d does not fit 32 bits", v.Name, v.Value)}
		}
		if v.Value > math.MaxInt32 {
			underlying = "uint"
		}
		negative = negative || v.Value < 0
	}
	if underlying == "uint" && negative {
		return nil, &MappingError{Kind: MapErrUnrepresentable, Decl: e.Name,
			Detail: "enumerators need both negative values and values above int.MaxValue"}
	}

	out := &Enum{Header: h, Underlying: underlying}
	for _, v := range e.Values {
		out.Members = append(out.Members, EnumMember{
			Name:  names.MemberName(v.Name, h.Name),
			Value: strconv.FormatInt(v.Value, 10),
		})
	}
	if e.Extensible || m.opts.ExtensibleEnums {
		value := strconv.FormatInt(math.MaxInt32, 10)
		if underlying == "uint" {
			value = strconv.FormatUint(math.MaxUint32, 10)
		}
		out.Members = append(out.Members, EnumMember{Name: sentinelName(h.Name), Value: value, Sentinel: true})
	}
	return out, nil
}

func (m *mapper) record(n *unify.Node, h Header) (Node, error) {
	rec := n.Decl.(*cast.Record)
	info := n.RepresentativeLayout()
	if info == nil {
		return nil, &MappingError{Kind: MapErrUnrepresentable, Decl: n.Name, Detail: "no layout"}
	}
	return m.structOf(m.types(n), h, rec, info)
}

func (m *mapper) structOf(tm *typeMapper, h Header, rec *cast.Record, info *layout.Info) (*Struct, error) {
	s := &Struct{Header: h, Size: info.Size, Align: info.Align, Union: info.Union}
	anonymous, units := 0, 0
	used := members{}
	used.claim(h.Name)
	fieldNames := make([]string, len(rec.Fields))
	for i := range rec.Fields {
		if rec.Fields[i].Name != "" {
			fieldNames[i] = used.claim(names.MemberName(rec.Fields[i].Name, h.Name))
		}
	}
	for i := 0; i < len(info.Fields); i++ {
		fl := info.Fields[i]
		f := &rec.Fields[fl.Index]

		switch {
		case fl.Bitfield:
			sf := StructField{
				Name:    used.claim("_bitfield" + strconv.Itoa(units)),
				Type:    unsignedOfSize(fl.Size),
				Offset:  fl.Offset,
				Size:    fl.Size,
				Padding: fl.Padding,
				CType:   f.Type.Spelling(),
			}
			units++
			j := i
			for ; j < len(info.Fields); j++ {
				b := info.Fields[j]
				if !b.Bitfield || b.Unit != fl.Unit || b.Offset != fl.Offset {
					break
				}
				bf := &rec.Fields[b.Index]
				if bf.Name == "" {
					continue
				}
				typ, err := tm.csType(&bf.Type, false)
				if err != nil {
					return nil, err
				}
				if _, ok := integerTypes[typ]; !ok {
					typ = sf.Type
				}
				sf.Bits = append(sf.Bits, Bitfield{
					Name:      fieldNames[b.Index],
					Type:      typ,
					BitOffset: b.BitOffset,
					BitWidth:  b.BitWidth,
				})
			}
			i = j - 1
			s.Fields = append(s.Fields, sf)

		case f.Type.Anonymous != nil && fl.Nested != nil:
			kind := "Struct"
			if f.Type.Anonymous.Union {
				kind = "Union"
			}
			nestedName := used.claim("Anonymous" + kind + strconv.Itoa(anonymous))
			fieldName := fieldNames[fl.Index]
			if f.Name == "" {
				fieldName = used.claim("Anonymous" + strconv.Itoa(anonymous))
			}
			anonymous++
			nh := Header{
				Name:      nestedName,
				CName:     f.Type.Spelling(),
				CKind:     cast.KindRecord,
				Location:  f.Location,
				Platforms: h.Platforms,
			}
			nested, err := m.structOf(tm, nh, f.Type.Anonymous, fl.Nested)
			if err != nil {
				return nil, err
			}
			s.Nested = append(s.Nested, nested)
			s.Fields = append(s.Fields, StructField{
				Name:    fieldName,
				Type:    nestedName,
				Offset:  fl.Offset,
				Size:    fl.Size,
				Padding: fl.Padding,
				CType:   f.Type.Spelling(),
			})

		default:
			if _, isArray := tm.resolveArray(&f.Type); isArray {
				sf, keep, err := m.arrayField(tm, h, f, fl, fieldNames[fl.Index], used)
				if err != nil {
					return nil, err
				}
				if keep {
					s.Fields = append(s.Fields, sf)
				}
				continue
			}
			cs, err := tm.csType(&f.Type, false)
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, StructField{
				Name:    fieldNames[fl.Index],
				Type:    cs,
				Offset:  fl.Offset,
				Size:    fl.Size,
				Padding: fl.Padding,
				CType:   f.Type.Spelling(),
			})
		}
	}
	return s, nil
}

// arrayField maps an array member to a fixed buffer, wrapping element types
// C# does not allow in one. Backing identifiers are claimed from used.
func (m *mapper) arrayField(tm *typeMapper, h Header, f *cast.Field, fl layout.FieldLayout, name string, used members) (StructField, bool, error) {
	elem, count := tm.flattenArray(&f.Type)
	sf := StructField{
		Name:      name,
		Offset:    fl.Offset,
		Size:      fl.Size,
		Padding:   fl.Padding,
		CType:     f.Type.Spelling(),
		ElemCount: count,
	}
	if count == 0 {
		diag.ReportInfo(m.r, diag.MapInfo, f.Location,
			fmt.Sprintf("field %q of %q is a zero-length array and is not emitted", f.Name, h.CName)).
			Emit()
		return sf, false, nil
	}
	if elem.Anonymous != nil {
		return sf, false, tm.unrepresentable("array of anonymous aggregates in field %q", f.Name)
	}

	if elem.Kind == cast.TypePrimitive && elem.Name == "char" {
		sf.Buffer = BufferString
		sf.Type = "string"
		sf.StorageType = "byte"
		sf.StorageLen = count
		sf.BackingName = used.claim(names.BackingFieldName(name))
		return sf, true, nil
	}

	cs, err := tm.csType(elem, false)
	if err != nil {
		return sf, false, err
	}
	if _, native := fixedBufferTypes[cs]; native {
		sf.Buffer = BufferFixed
		sf.Type = cs
		sf.StorageType = cs
		sf.StorageLen = count
		return sf, true, nil
	}

	_, align, err := layout.New(tm.ast).SizeOf(elem, tm.layouts)
	if err != nil {
		return sf, false, tm.unrepresentable("element of field %q: %v", f.Name, err)
	}
	unit := max(min(align, 8), 1)
	if strings.HasSuffix(cs, "*") {
		// Span<T> does not take pointer types
		cs = "nint"
	}
	sf.Buffer = BufferWrapped
	sf.Type = cs
	sf.StorageType = unsignedOfSize(unit)
	sf.StorageLen = fl.Size / unit
	sf.BackingName = used.claim(names.BackingFieldName(name))
	return sf, true, nil
}

// members tracks the identifiers declared in one generated struct; C# rejects
// two members of the same name (CS0102).
type members map[string]struct{}

// claim reserves name, appending underscores until it is free.
func (m members) claim(name string) string {
	for {
		key := strings.TrimPrefix(name, "@")
		if _, taken := m[key]; !taken {
			m[key] = struct{}{}
			return name
		}
		name += "_"
	}
}

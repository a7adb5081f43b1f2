package bind

import (
	"testing"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/layout"
	"bindforge/internal/names"
	"bindforge/internal/platform"
	"bindforge/internal/unify"
)

const linux = "x86_64-unknown-linux-gnu"

func prim(name string) cast.TypeRef { return cast.TypeRef{Kind: cast.TypePrimitive, Name: name} }

func ptr(inner cast.TypeRef) cast.TypeRef {
	return cast.TypeRef{Kind: cast.TypePointer, Inner: &inner}
}

func array(inner cast.TypeRef, n int) cast.TypeRef {
	return cast.TypeRef{Kind: cast.TypeArray, Inner: &inner, ArrayLength: n}
}

func build(t *testing.T, opts Options, triple string, decls ...cast.Decl) ([]Node, *diag.Bag) {
	t.Helper()
	ast := cast.NewAST(platform.MustParse(triple), "api.h", decls)
	bag := diag.NewBag()
	r := diag.BagReporter{Bag: bag}
	table := layout.CalculateAll(ast, r)
	if bag.HasErrors() {
		t.Fatalf("layout errors: %v", bag.Items())
	}
	nodes := unify.Unify([]unify.PlatformAST{{AST: ast, Layouts: table}}, r)
	mapped := names.Map(nodes, names.Options{ClassName: opts.ClassName}, r)
	return Map(nodes, mapped, opts, r), bag
}

func find(nodes []Node, name string) Node {
	for _, n := range nodes {
		if n.Head().Name == name {
			return n
		}
	}
	return nil
}

func TestAliasOfSameNameIsSkipped(t *testing.T) {
	nodes, bag := build(t, Options{ClassName: "Native"}, linux,
		&cast.Record{Name: "X", Fields: []cast.Field{{Name: "a", Type: prim("int")}}},
		&cast.Typedef{Name: "X", Underlying: cast.TypeRef{Kind: cast.TypeRecord, Name: "X"}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	count := 0
	for _, n := range nodes {
		if n.Head().Name == "X" {
			count++
			if n.Kind() != KindStruct {
				t.Fatalf("X emitted as %s", n.Kind())
			}
		}
	}
	if count != 1 {
		t.Fatalf("X emitted %d times, want 1", count)
	}
	if got := len(bag.WithCode(diag.MapAliasSkipped)); got != 1 {
		t.Fatalf("alias-skipped diagnostics = %d, want 1", got)
	}
}

func TestAliasReferencedByName(t *testing.T) {
	nodes, bag := build(t, Options{ClassName: "Native"}, linux,
		&cast.Typedef{Name: "handle_t", Underlying: prim("int")},
		&cast.Typedef{Name: "vec3", Underlying: array(prim("float"), 3)},
		&cast.Function{Name: "open_handle", Return: cast.TypeRef{Kind: cast.TypeTypedef, Name: "handle_t"},
			Params: []cast.Param{{Name: "v", Type: cast.TypeRef{Kind: cast.TypeTypedef, Name: "vec3"}}}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	fn, ok := find(nodes, "open_handle").(*FunctionExtern)
	if !ok {
		t.Fatalf("open_handle not emitted: %v", nodes)
	}
	if fn.Return != "handle_t" {
		t.Errorf("return = %q, want handle_t", fn.Return)
	}
	if len(fn.Params) != 1 || fn.Params[0].Type != "float*" {
		t.Errorf("params = %+v, want vec3 decayed to float*", fn.Params)
	}
	alias, ok := find(nodes, "handle_t").(*TypeAlias)
	if !ok || alias.Underlying != "int" || alias.Size != 4 || alias.Align != 4 {
		t.Fatalf("handle_t alias = %+v", find(nodes, "handle_t"))
	}
	if find(nodes, "vec3") != nil {
		t.Errorf("array typedef must not be emitted")
	}
}

func TestVariadicFunctionsAreSkipped(t *testing.T) {
	vaList := cast.TypeRef{Kind: cast.TypeTypedef, Name: "va_list"}
	nodes, bag := build(t, Options{}, linux,
		&cast.Function{Name: "log_v", Return: prim("void"),
			Params: []cast.Param{{Name: "fmt", Type: ptr(prim("char"))}, {Name: "args", Type: vaList}}},
		&cast.Function{Name: "log_f", Return: prim("void"), Variadic: true,
			Params: []cast.Param{{Name: "fmt", Type: ptr(prim("char"))}}},
		&cast.Function{Name: "log_s", Return: prim("void"),
			Params: []cast.Param{{Name: "msg", Type: ptr(prim("char"))}}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(nodes) != 1 || nodes[0].Head().Name != "log_s" {
		t.Fatalf("nodes = %v, want only log_s", nodes)
	}
	if got := len(bag.WithCode(diag.MapVariadicSkipped)); got != 2 {
		t.Fatalf("variadic diagnostics = %d, want 2", got)
	}
	fn := nodes[0].(*FunctionExtern)
	if fn.Params[0].Type != "CString" || fn.CallingConvention != "Cdecl" || fn.EntryPoint != "log_s" {
		t.Fatalf("log_s = %+v", fn)
	}
}

func TestEnumSentinel(t *testing.T) {
	values := make([]cast.EnumValue, 0, 6)
	for i, n := range []string{"A", "B", "C", "D", "E", "F"} {
		values = append(values, cast.EnumValue{Name: "COLOR_" + n, Value: int64(i)})
	}
	tests := []struct {
		name       string
		values     []cast.EnumValue
		underlying string
		sentinel   string
	}{
		{"int", values, "int", "2147483647"},
		{"uint", []cast.EnumValue{{Name: "BIG", Value: 3000000000}}, "uint", "4294967295"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nodes, bag := build(t, Options{}, linux,
				&cast.Enum{Name: "color", Size: 4, Extensible: true, Values: tc.values})
			if bag.HasErrors() {
				t.Fatalf("unexpected errors: %v", bag.Items())
			}
			e, ok := nodes[0].(*Enum)
			if !ok {
				t.Fatalf("node = %T", nodes[0])
			}
			if e.Underlying != tc.underlying {
				t.Fatalf("underlying = %q, want %q", e.Underlying, tc.underlying)
			}
			if len(e.Members) != len(tc.values)+1 {
				t.Fatalf("members = %d, want %d", len(e.Members), len(tc.values)+1)
			}
			last := e.Members[len(e.Members)-1]
			if !last.Sentinel || last.Name != "_COLOR_FORCE_U32" || last.Value != tc.sentinel {
				t.Fatalf("sentinel = %+v", last)
			}
			if len(e.RealMembers()) != len(tc.values) {
				t.Fatalf("real members = %d", len(e.RealMembers()))
			}
		})
	}
}

func TestEnumWithoutSentinelUnlessRequested(t *testing.T) {
	decl := &cast.Enum{Name: "mode", Size: 4, Values: []cast.EnumValue{{Name: "MODE_A", Value: -1}}}
	nodes, _ := build(t, Options{}, linux, decl)
	if e := nodes[0].(*Enum); len(e.Members) != 1 {
		t.Fatalf("members = %+v", e.Members)
	}
	nodes, _ = build(t, Options{ExtensibleEnums: true}, linux, decl)
	if e := nodes[0].(*Enum); len(e.Members) != 2 {
		t.Fatalf("members = %+v", e.Members)
	}
}

func TestUnknownCallingConvention(t *testing.T) {
	nodes, bag := build(t, Options{}, linux,
		&cast.Function{Name: "odd", CallingConvention: "vectorcall", Return: prim("void")},
		&cast.Function{Name: "plain", CallingConvention: "cdecl", Return: prim("int")},
		&cast.FunctionPointer{Name: "cb", CallingConvention: "stdcall", Return: prim("void")},
	)
	errs := bag.WithCode(diag.MapUnknownCallingConvention)
	if len(errs) != 1 || errs[0].Severity != diag.SevError {
		t.Fatalf("calling convention errors = %v", errs)
	}
	if find(nodes, "odd") != nil {
		t.Fatalf("odd must be dropped")
	}
	if _, ok := find(nodes, "plain").(*FunctionExtern); !ok {
		t.Fatalf("plain must be emitted: %v", nodes)
	}
	fp, ok := find(nodes, "cb").(*FunctionPointer)
	if !ok || fp.CallingConvention != "Stdcall" || fp.Native {
		t.Fatalf("cb = %+v", find(nodes, "cb"))
	}
}

func TestDataModelTypes(t *testing.T) {
	decl := &cast.Function{Name: "f", Return: prim("long"),
		Params: []cast.Param{{Type: prim("unsigned long")}, {Name: "n", Type: prim("size_t")}, {Name: "w", Type: prim("wchar_t")}}}
	tests := []struct {
		triple string
		ret    string
		params []Param
	}{
		{linux, "long", []Param{{"unnamed0", "ulong"}, {"n", "nuint"}, {"w", "int"}}},
		{"x86_64-pc-windows-msvc", "int", []Param{{"unnamed0", "uint"}, {"n", "nuint"}, {"w", "ushort"}}},
	}
	for _, tc := range tests {
		t.Run(tc.triple, func(t *testing.T) {
			nodes, bag := build(t, Options{}, tc.triple, decl)
			if bag.HasErrors() {
				t.Fatalf("unexpected errors: %v", bag.Items())
			}
			fn := nodes[0].(*FunctionExtern)
			if fn.Return != tc.ret {
				t.Errorf("return = %q, want %q", fn.Return, tc.ret)
			}
			if len(fn.Params) != len(tc.params) {
				t.Fatalf("params = %+v", fn.Params)
			}
			for i, p := range tc.params {
				if fn.Params[i] != p {
					t.Errorf("param %d = %+v, want %+v", i, fn.Params[i], p)
				}
			}
		})
	}
}

func TestPointerToUnboundTypeDegrades(t *testing.T) {
	nodes, bag := build(t, Options{}, linux,
		&cast.Function{Name: "g", Return: prim("void"),
			Params: []cast.Param{{Name: "p", Type: ptr(cast.TypeRef{Kind: cast.TypeRecord, Name: "hidden"})}}},
		&cast.Function{Name: "h", Return: cast.TypeRef{Kind: cast.TypeRecord, Name: "hidden"}},
	)
	if fn, ok := find(nodes, "g").(*FunctionExtern); !ok || fn.Params[0].Type != "void*" {
		t.Fatalf("g = %+v", find(nodes, "g"))
	}
	if find(nodes, "h") != nil {
		t.Fatalf("h returns an unbound record by value and must be dropped")
	}
	if got := len(bag.WithCode(diag.MapUnresolvedType)); got != 1 {
		t.Fatalf("unresolved diagnostics = %d, want 1", got)
	}
}

func TestStructFields(t *testing.T) {
	nodes, bag := build(t, Options{}, linux,
		&cast.Record{Name: "item", Fields: []cast.Field{
			{Name: "name", Type: array(prim("char"), 16)},
			{Name: "vals", Type: array(array(prim("int"), 2), 2)},
			{Name: "ptrs", Type: array(ptr(prim("void")), 2)},
			{Name: "a", Type: prim("unsigned int"), Bitfield: true, BitWidth: 3},
			{Name: "b", Type: prim("unsigned int"), Bitfield: true, BitWidth: 5},
			{Name: "item", Type: prim("double")},
		}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	s := nodes[0].(*Struct)
	if s.Size != 64 || s.Align != 8 || len(s.Fields) != 5 {
		t.Fatalf("struct = size %d align %d fields %+v", s.Size, s.Align, s.Fields)
	}
	name := s.Fields[0]
	if name.Buffer != BufferString || name.StorageType != "byte" || name.StorageLen != 16 || name.BackingName != "_name" {
		t.Errorf("name = %+v", name)
	}
	vals := s.Fields[1]
	if vals.Buffer != BufferFixed || vals.Type != "int" || vals.StorageLen != 4 || vals.Offset != 16 {
		t.Errorf("vals = %+v", vals)
	}
	ptrs := s.Fields[2]
	if ptrs.Buffer != BufferWrapped || ptrs.Type != "nint" || ptrs.StorageType != "ulong" || ptrs.StorageLen != 2 || ptrs.ElemCount != 2 {
		t.Errorf("ptrs = %+v", ptrs)
	}
	bits := s.Fields[3]
	if bits.Name != "_bitfield0" || bits.Type != "byte" || bits.Size != 1 || bits.Offset != 48 || len(bits.Bits) != 2 {
		t.Fatalf("bitfield = %+v", bits)
	}
	if bits.Bits[1] != (Bitfield{Name: "b", Type: "uint", BitOffset: 3, BitWidth: 5}) {
		t.Errorf("bit b = %+v", bits.Bits[1])
	}
	if last := s.Fields[4]; last.Name != "item_" || last.Offset != 56 || last.Padding != 7 {
		t.Errorf("member named like its struct = %+v", last)
	}
}

func TestSynthesizedMembersAvoidDeclaredNames(t *testing.T) {
	inner := &cast.Record{Anonymous: true, Fields: []cast.Field{{Name: "x", Type: prim("int")}}}
	nodes, bag := build(t, Options{}, linux,
		&cast.Record{Name: "rec", Fields: []cast.Field{
			{Name: "name", Type: array(prim("char"), 8)},
			{Name: "_name", Type: prim("int")},
			{Name: "_bitfield0", Type: prim("int")},
			{Name: "a", Type: prim("unsigned int"), Bitfield: true, BitWidth: 3},
			{Name: "Anonymous0", Type: prim("int")},
			{Type: cast.TypeRef{Kind: cast.TypeRecord, Anonymous: inner}},
		}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	s := find(nodes, "rec").(*Struct)
	seen := map[string]bool{}
	for _, f := range s.Fields {
		for _, id := range []string{f.Name, f.BackingName} {
			if id == "" {
				continue
			}
			if seen[id] {
				t.Fatalf("member %q declared twice in %+v", id, s.Fields)
			}
			seen[id] = true
		}
	}
	want := map[string]string{"name": "__name", "_name": "", "_bitfield0_": "", "Anonymous0_": ""}
	for _, f := range s.Fields {
		if backing, ok := want[f.Name]; ok {
			if f.BackingName != backing {
				t.Errorf("%s backing = %q, want %q", f.Name, f.BackingName, backing)
			}
			delete(want, f.Name)
		}
	}
	if len(want) != 0 {
		t.Fatalf("missing members %v in %+v", want, s.Fields)
	}
}

func TestAnonymousMembers(t *testing.T) {
	inner := &cast.Record{Union: true, Anonymous: true, Fields: []cast.Field{
		{Name: "i", Type: prim("int")},
		{Name: "f", Type: prim("float")},
	}}
	nodes, bag := build(t, Options{}, linux,
		&cast.Record{Name: "value", Fields: []cast.Field{
			{Name: "tag", Type: prim("int")},
			{Type: cast.TypeRef{Kind: cast.TypeRecord, Anonymous: inner}},
		}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	s := nodes[0].(*Struct)
	if len(s.Nested) != 1 || s.Nested[0].Name != "AnonymousUnion0" || !s.Nested[0].Union {
		t.Fatalf("nested = %+v", s.Nested)
	}
	if f := s.Fields[1]; f.Name != "Anonymous0" || f.Type != "AnonymousUnion0" || f.Offset != 4 {
		t.Fatalf("anonymous field = %+v", f)
	}
	if len(s.Nested[0].Fields) != 2 || s.Nested[0].Fields[1].Offset != 0 {
		t.Fatalf("union fields = %+v", s.Nested[0].Fields)
	}
}

func TestMacroConstants(t *testing.T) {
	nodes, bag := build(t, Options{}, linux,
		&cast.Macro{Name: "FLAG_A", ValueKind: cast.MacroInt, Raw: "1", Int: 1, Uint: 1},
		&cast.Macro{Name: "FLAG_B", ValueKind: cast.MacroInt, Raw: "2", Int: 2, Uint: 2},
		&cast.Macro{Name: "BIG", ValueKind: cast.MacroInt, Raw: "3000000000", Int: 3000000000, Uint: 3000000000},
		&cast.Macro{Name: "HUGE", ValueKind: cast.MacroInt, Raw: "0xFFFFFFFFFFFFFFFF", Int: -1, Uint: 1<<64 - 1, Unsigned: true},
		&cast.Macro{Name: "GREETING", ValueKind: cast.MacroString, Raw: `"hi\n"`},
		&cast.Macro{Name: "PI", ValueKind: cast.MacroFloat, Raw: "3.5", Float: 3.5},
		&cast.Macro{Name: "ON", ValueKind: cast.MacroBool, Raw: "true", Bool: true},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	pe, ok := nodes[0].(*PseudoEnum)
	if !ok || pe.Name != "FLAG" || len(pe.Constants) != 2 || pe.Constants[1].Name != "FLAG_B" {
		t.Fatalf("pseudo enum = %+v", nodes[0])
	}
	want := []struct{ name, typ, value string }{
		{"BIG", "uint", "3000000000"},
		{"HUGE", "ulong", "18446744073709551615"},
		{"GREETING", "string", `"hi\n"`},
		{"PI", "double", "3.5"},
		{"ON", "bool", "true"},
	}
	if len(nodes) != len(want)+1 {
		t.Fatalf("nodes = %d", len(nodes))
	}
	for i, w := range want {
		mc := nodes[i+1].(*MacroConstant)
		if mc.Name != w.name || mc.Type != w.typ || mc.Value != w.value {
			t.Errorf("constant %d = %+v, want %+v", i, mc, w)
		}
	}
}

func TestEmissionOrder(t *testing.T) {
	nodes, bag := build(t, Options{FunctionPointers: true}, linux,
		&cast.FunctionPointer{Name: "callback", Return: prim("void"), Params: []cast.Param{{Type: prim("int")}}},
		&cast.Typedef{Name: "handle_t", Underlying: prim("int")},
		&cast.Opaque{Name: "ctx"},
		&cast.Enum{Name: "mode", Size: 4, Values: []cast.EnumValue{{Name: "MODE_A"}}},
		&cast.Record{Name: "point", Fields: []cast.Field{{Name: "x", Type: prim("int")}}},
		&cast.Macro{Name: "LIMIT", ValueKind: cast.MacroInt, Raw: "8", Int: 8, Uint: 8},
		&cast.Function{Name: "run", Return: prim("void"),
			Params: []cast.Param{{Name: "c", Type: ptr(cast.TypeRef{Kind: cast.TypeOpaque, Name: "ctx"})},
				{Name: "cb", Type: cast.TypeRef{Kind: cast.TypeFunctionPointer, Name: "callback"}}}},
	)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	want := []NodeKind{KindFunctionExtern, KindMacroConstant, KindStruct, KindEnum, KindOpaqueType, KindTypeAlias, KindFunctionPointer}
	if len(nodes) != len(want) {
		t.Fatalf("nodes = %d, want %d", len(nodes), len(want))
	}
	for i, k := range want {
		if nodes[i].Kind() != k {
			t.Errorf("node %d = %s, want %s", i, nodes[i].Kind(), k)
		}
	}
	run := nodes[0].(*FunctionExtern)
	if run.Params[0].Type != "ctx*" || run.Params[1].Type != "callback" {
		t.Fatalf("run params = %+v", run.Params)
	}
	if fp := nodes[6].(*FunctionPointer); !fp.Native || fp.Params[0].Name != "unnamed0" {
		t.Fatalf("callback = %+v", fp)
	}
}

func TestStringLiteral(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`a"b\c`, `"a\"b\\c"`},
		{"tab\tnul\x00bell\x07", `"tab\tnul\0bell\u0007"`},
	}
	for _, tc := range tests {
		if got := StringLiteral(tc.in); got != tc.want {
			t.Errorf("StringLiteral(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

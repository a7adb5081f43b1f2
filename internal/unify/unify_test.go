package unify

import (
	"strings"
	"testing"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/layout"
	"bindforge/internal/platform"
)

func prim(name string) cast.TypeRef { return cast.TypeRef{Kind: cast.TypePrimitive, Name: name} }

func platformAST(t *testing.T, triple string, decls ...cast.Decl) PlatformAST {
	t.Helper()
	ast := cast.NewAST(platform.MustParse(triple), "api.h", decls)
	bag := diag.NewBag()
	table := layout.CalculateAll(ast, diag.BagReporter{Bag: bag})
	if bag.HasErrors() {
		t.Fatalf("layout errors: %v", bag.Items())
	}
	return PlatformAST{AST: ast, Layouts: table}
}

func pointDecls() []cast.Decl {
	return []cast.Decl{
		&cast.Record{Name: "point", Fields: []cast.Field{
			{Name: "x", Type: prim("int")},
			{Name: "y", Type: prim("int")},
		}},
		&cast.Enum{Name: "mode", Size: 4, Values: []cast.EnumValue{{Name: "MODE_A", Value: 0}, {Name: "MODE_B", Value: 1}}},
		&cast.Function{Name: "point_len", CallingConvention: "cdecl", Return: prim("double"),
			Params: []cast.Param{{Name: "p", Type: cast.TypeRef{Kind: cast.TypePointer, Name: "point*", Inner: &cast.TypeRef{Kind: cast.TypeRecord, Name: "point"}}}}},
		&cast.Macro{Name: "POINT_MAX", ValueKind: cast.MacroInt, Raw: "100", Int: 100, Uint: 100},
	}
}

func TestSinglePlatformRoundTrip(t *testing.T) {
	decls := pointDecls()
	pa := platformAST(t, "x86_64-unknown-linux-gnu", decls...)
	bag := diag.NewBag()
	nodes := Unify([]PlatformAST{pa}, diag.BagReporter{Bag: bag})

	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(nodes) != len(decls) {
		t.Fatalf("nodes = %d, want %d", len(nodes), len(decls))
	}
	for i, n := range nodes {
		if n.Decl != decls[i] {
			t.Fatalf("node %d: representative is not the input declaration", i)
		}
		if n.Divergent || n.Partial || n.Order != i {
			t.Fatalf("node %d: %+v", i, n)
		}
		if len(n.Platforms) != 1 || n.Platforms[0] != "x86_64-unknown-linux-gnu" {
			t.Fatalf("node %d platforms = %v", i, n.Platforms)
		}
	}
	want, _ := pa.Layouts.Get("point")
	if nodes[0].Layout == nil || !nodes[0].Layout.Equal(&want) {
		t.Fatalf("record layout not carried over: %+v", nodes[0].Layout)
	}
}

func TestAgreeingPlatformsCollapse(t *testing.T) {
	linux := platformAST(t, "x86_64-unknown-linux-gnu", pointDecls()...)
	mac := platformAST(t, "aarch64-apple-darwin", pointDecls()...)
	bag := diag.NewBag()
	nodes := Unify([]PlatformAST{linux, mac}, diag.BagReporter{Bag: bag})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	for _, n := range nodes {
		if n.Divergent || len(n.Platforms) != 2 {
			t.Fatalf("%s: divergent=%v platforms=%v", n.Name, n.Divergent, n.Platforms)
		}
	}
	if nodes[0].Platforms[0] != "aarch64-apple-darwin" {
		t.Fatalf("platforms should be sorted by triple: %v", nodes[0].Platforms)
	}
}

func TestDivergentOffsetsReportOnce(t *testing.T) {
	a := platformAST(t, "x86_64-unknown-linux-gnu", &cast.Record{Name: "hdr", Fields: []cast.Field{
		{Name: "tag", Type: prim("char")},
		{Name: "len", Type: prim("int")},
	}})
	b := platformAST(t, "x86_64-pc-windows-msvc", &cast.Record{Name: "hdr", Packed: true, Fields: []cast.Field{
		{Name: "tag", Type: prim("char")},
		{Name: "len", Type: prim("int")},
	}})
	bag := diag.NewBag()
	nodes := Unify([]PlatformAST{a, b}, diag.BagReporter{Bag: bag})
	if len(nodes) != 1 || !nodes[0].Divergent {
		t.Fatalf("expected one divergent node, got %+v", nodes)
	}
	if nodes[0].Layout != nil {
		t.Fatalf("divergent node must not carry a single layout")
	}
	if got := nodes[0].RepresentativeLayout(); got == nil || got.Size != 5 {
		t.Fatalf("representative should be the windows (first sorted) layout, got %+v", got)
	}
	if n := len(bag.WithCode(diag.DivLayout)); n != 1 {
		t.Fatalf("divergence warnings = %d, want 1", n)
	}
	d := bag.WithCode(diag.DivLayout)[0]
	if d.Severity != diag.SevWarning || len(d.Notes) != 2 {
		t.Fatalf("divergence diagnostic = %+v", d)
	}
	if bag.HasErrors() {
		t.Fatalf("divergence must not be an error")
	}
}

func TestFunctionDivergesOnDataModel(t *testing.T) {
	fn := func() cast.Decl {
		return &cast.Function{Name: "tick", CallingConvention: "cdecl", Return: prim("long")}
	}
	bag := diag.NewBag()
	nodes := Unify([]PlatformAST{
		platformAST(t, "x86_64-unknown-linux-gnu", fn()),
		platformAST(t, "x86_64-pc-windows-msvc", fn()),
	}, diag.BagReporter{Bag: bag})
	if !nodes[0].Divergent || len(bag.WithCode(diag.DivLayout)) != 1 {
		t.Fatalf("long return should diverge between LP64 and LLP64: %v", bag.Items())
	}
}

func TestSubsetPresenceIsTagged(t *testing.T) {
	linux := platformAST(t, "x86_64-unknown-linux-gnu", &cast.Opaque{Name: "common"}, &cast.Opaque{Name: "epoll_handle"})
	win := platformAST(t, "x86_64-pc-windows-msvc", &cast.Opaque{Name: "common"}, &cast.Opaque{Name: "win_handle"})
	bag := diag.NewBag()
	nodes := Unify([]PlatformAST{linux, win}, diag.BagReporter{Bag: bag})

	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	// windows sorts first, so its declarations are seen first
	want := []string{"common", "win_handle", "epoll_handle"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
	if nodes[0].Partial || !nodes[1].Partial || !nodes[2].Partial {
		t.Fatalf("partial flags wrong: %v %v %v", nodes[0].Partial, nodes[1].Partial, nodes[2].Partial)
	}
	if bag.HasErrors() || bag.HasWarnings() {
		t.Fatalf("subset presence is not a problem: %v", bag.Items())
	}
	if len(bag.WithCode(diag.DivPartialPlatforms)) != 2 {
		t.Fatalf("expected two partial-platform notes, got %v", bag.Items())
	}
}

func TestLayoutFailureMarksDivergent(t *testing.T) {
	rec := func() *cast.Record {
		return &cast.Record{Name: "point", Fields: []cast.Field{{Name: "x", Type: prim("int")}}}
	}
	linux := platformAST(t, "x86_64-unknown-linux-gnu", rec())
	// an empty table stands in for a record whose layout failed
	win := PlatformAST{
		AST:     cast.NewAST(platform.MustParse("x86_64-pc-windows-msvc"), "api.h", []cast.Decl{rec()}),
		Layouts: layout.NewTable(),
	}
	bag := diag.NewBag()
	nodes := Unify([]PlatformAST{linux, win}, diag.BagReporter{Bag: bag})

	if len(nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(nodes))
	}
	n := nodes[0]
	if !n.Divergent || n.Partial || n.Layout != nil {
		t.Fatalf("node = divergent %v partial %v layout %v", n.Divergent, n.Partial, n.Layout)
	}
	if len(n.LayoutFailed) != 1 || n.LayoutFailed[0] != "x86_64-pc-windows-msvc" {
		t.Fatalf("layout failed on %v", n.LayoutFailed)
	}
	if n.RepresentativeLayout() == nil {
		t.Fatalf("representative layout should come from linux")
	}
	if got := bag.WithCode(diag.DivPartialPlatforms); len(got) != 0 {
		t.Fatalf("a layout failure is not partial presence: %v", got)
	}
	warns := bag.WithCode(diag.DivLayout)
	if len(warns) != 1 || !strings.Contains(warns[0].Message, "could not be laid out on x86_64-pc-windows-msvc") {
		t.Fatalf("divergence warnings = %v", warns)
	}
}

func TestUnifyIsOrderInsensitive(t *testing.T) {
	linux := platformAST(t, "x86_64-unknown-linux-gnu", pointDecls()...)
	mac := platformAST(t, "aarch64-apple-darwin", pointDecls()...)
	first := Unify([]PlatformAST{linux, mac}, diag.NopReporter{})
	second := Unify([]PlatformAST{mac, linux}, diag.NopReporter{})
	for i := range first {
		if first[i].Name != second[i].Name || first[i].Decl != second[i].Decl {
			t.Fatalf("node %d differs between input orders", i)
		}
	}
}

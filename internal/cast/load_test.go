package cast

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pointDoc = `{
  "platform": "x86_64-unknown-linux-gnu",
  "file": "point.h",
  "declarations": [
    {"kind": "record", "name": "point", "size": 8, "align": 4,
     "location": {"line": 1, "column": 8},
     "fields": [
       {"name": "x", "offset": 0, "type": {"kind": "primitive", "name": "int", "size": 4, "align": 4}},
       {"name": "y", "offset": 4, "type": {"kind": "primitive", "name": "int", "size": 4, "align": 4}}
     ]},
    {"kind": "typedef", "name": "point_t", "underlying": {"kind": "record", "name": "point"}},
    {"kind": "enum", "name": "mode", "size": 4, "values": [{"name": "MODE_A", "value": 0}, {"name": "MODE_B", "value": 1}]},
    {"kind": "function", "name": "point_len", "calling_convention": "cdecl",
     "return_type": {"kind": "primitive", "name": "double"},
     "parameters": [{"name": "p", "type": {"kind": "pointer", "name": "point*", "inner": {"kind": "typedef", "name": "point_t"}}}]},
    {"kind": "macro", "name": "POINT_MAX", "value": "0xFFFFFFFFu"}
  ]
}`

func TestLoadPointDocument(t *testing.T) {
	ast, err := Load(strings.NewReader(pointDoc), "point.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ast.Platform.Triple != "x86_64-unknown-linux-gnu" {
		t.Fatalf("platform = %q", ast.Platform.Triple)
	}
	if len(ast.Decls) != 5 {
		t.Fatalf("decls = %d, want 5", len(ast.Decls))
	}
	d, ok := ast.Lookup(KindRecord, "point")
	if !ok {
		t.Fatalf("record point not indexed")
	}
	rec := d.(*Record)
	if rec.Size != 8 || rec.Align != 4 || len(rec.Fields) != 2 {
		t.Fatalf("record facts = %+v", rec)
	}
	if !rec.Fields[1].HasOffset || rec.Fields[1].Offset != 4 {
		t.Fatalf("field y offset = %+v", rec.Fields[1])
	}
	if rec.Location.File != "point.h" || rec.Location.Line != 1 {
		t.Fatalf("location = %v", rec.Location)
	}

	fn, _ := ast.Lookup(KindFunction, "point_len")
	param := fn.(*Function).Params[0].Type
	if got := ast.Resolve(param.Inner); got.Kind != TypeRecord || got.Name != "point" {
		t.Fatalf("Resolve(point_t) = %+v", got)
	}

	m, _ := ast.Lookup(KindMacro, "POINT_MAX")
	macro := m.(*Macro)
	if macro.ValueKind != MacroInt || !macro.Unsigned || macro.Uint != 0xFFFFFFFF {
		t.Fatalf("macro = %+v", macro)
	}
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		kind LoadErrorKind
		path string
	}{
		{"not json", `{"platform":`, LoadErrMalformed, ""},
		{"unknown member", `{"platform":"x86_64-unknown-linux-gnu","extra":1}`, LoadErrMalformed, ""},
		{"missing platform", `{"declarations":[]}`, LoadErrMissingField, "platform"},
		{"bad platform", `{"platform":"z80-acme"}`, LoadErrUnknownPlatform, "platform"},
		{"unknown kind", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"class","name":"x"}]}`,
			LoadErrUnknownKind, "declarations[0].kind"},
		{"unnamed", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"opaque"}]}`,
			LoadErrMissingField, "declarations[0].name"},
		{"negative size", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"record","name":"r","size":-1}]}`,
			LoadErrMalformed, "declarations[0].size"},
		{"pointer without inner", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"record","name":"r","fields":[{"name":"p","type":{"kind":"pointer","name":"int*"}}]}]}`,
			LoadErrInvalidType, "declarations[0].fields[0].type.inner"},
		{"array without length", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"record","name":"r","fields":[{"name":"a","type":{"kind":"array","name":"int[]","inner":{"kind":"primitive","name":"int"}}}]}]}`,
			LoadErrMissingField, "declarations[0].fields[0].type.array_length"},
		{"unnamed plain field", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"record","name":"r","fields":[{"name":"","type":{"kind":"primitive","name":"int"}}]}]}`,
			LoadErrMissingField, "declarations[0].fields[0].name"},
		{"duplicate", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"opaque","name":"h"},{"kind":"opaque","name":"h"}]}`,
			LoadErrDuplicate, "declarations[1]"},
		{"bad macro", `{"platform":"x86_64-unknown-linux-gnu","declarations":[{"kind":"macro","name":"M","value":"12abc"}]}`,
			LoadErrMalformed, "declarations[0].value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.doc), "doc.json")
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			if le.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s (%v)", le.Kind, tc.kind, err)
			}
			if le.Path != tc.path {
				t.Fatalf("path = %q, want %q", le.Path, tc.path)
			}
			if le.Code().ID()[:4] != "LOAD" {
				t.Fatalf("code = %s", le.Code().ID())
			}
		})
	}
}

func TestLoadAllowsSameNameAcrossKinds(t *testing.T) {
	doc := `{"platform":"x86_64-pc-windows-msvc","declarations":[
	  {"kind":"opaque","name":"handle"},
	  {"kind":"typedef","name":"handle","underlying":{"kind":"pointer","name":"void*","inner":{"kind":"primitive","name":"void"}}}
	]}`
	ast, err := Load(strings.NewReader(doc), "win.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ast.Position(Key{Kind: KindTypedef, Name: "handle"}) != 1 {
		t.Fatalf("typedef handle not at position 1")
	}
}

func TestLoadAnonymousMember(t *testing.T) {
	doc := `{"platform":"aarch64-apple-darwin","declarations":[
	  {"kind":"record","name":"value","fields":[
	    {"name":"tag","type":{"kind":"primitive","name":"int"}},
	    {"type":{"kind":"record","record":{"kind":"record","union":true,"fields":[
	      {"name":"i","type":{"kind":"primitive","name":"int"}},
	      {"name":"f","type":{"kind":"primitive","name":"float"}}]}}}
	  ]}
	]}`
	ast, err := Load(strings.NewReader(doc), "anon.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := ast.Records()[0]
	anon := rec.Fields[1].Type.Anonymous
	if anon == nil || !anon.Union || !anon.Anonymous || len(anon.Fields) != 2 {
		t.Fatalf("anonymous member = %+v", anon)
	}
}

func TestLoadUnnamedBitfields(t *testing.T) {
	doc := `{"platform":"x86_64-unknown-linux-gnu","declarations":[
	  {"kind":"record","name":"flags","fields":[
	    {"name":"a","bit_width":3,"type":{"kind":"primitive","name":"unsigned int"}},
	    {"name":"","bit_width":0,"type":{"kind":"primitive","name":"unsigned int"}},
	    {"bit_width":3,"type":{"kind":"primitive","name":"int"}},
	    {"name":"c","bit_width":4,"type":{"kind":"primitive","name":"unsigned int"}}
	  ]}
	]}`
	ast, err := Load(strings.NewReader(doc), "flags.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, _ := ast.Lookup(KindRecord, "flags")
	rec := d.(*Record)
	if len(rec.Fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(rec.Fields))
	}
	for i, want := range []int{0, 3} {
		f := rec.Fields[i+1]
		if f.Name != "" || !f.Bitfield || f.BitWidth != want {
			t.Fatalf("field %d = %+v", i+1, f)
		}
	}
}

func TestLoadFileReportsIO(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	var le *LoadError
	if !errors.As(err, &le) || le.Kind != LoadErrIO {
		t.Fatalf("expected IO LoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestParseInteger(t *testing.T) {
	cases := []struct {
		raw      string
		i        int64
		u        uint64
		unsigned bool
	}{
		{"42", 42, 42, false},
		{"-7", -7, 0, false},
		{"0x10", 16, 16, false},
		{"010", 8, 8, false},
		{"0b101", 5, 5, false},
		{"(1u)", 1, 1, true},
		{"100UL", 100, 100, true},
		{"0xFFFFFFFFFFFFFFFF", -1, 0xFFFFFFFFFFFFFFFF, true},
		{"0", 0, 0, false},
	}
	for _, tc := range cases {
		i, u, unsigned, err := ParseInteger(tc.raw)
		if err != nil {
			t.Fatalf("ParseInteger(%q): %v", tc.raw, err)
		}
		if i != tc.i || u != tc.u || unsigned != tc.unsigned {
			t.Errorf("ParseInteger(%q) = (%d, %d, %v), want (%d, %d, %v)", tc.raw, i, u, unsigned, tc.i, tc.u, tc.unsigned)
		}
	}
	if _, _, _, err := ParseInteger("1.5"); err == nil {
		t.Fatalf("expected error for float literal")
	}
}

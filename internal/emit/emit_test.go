package emit

import (
	"strings"
	"testing"

	"bindforge/internal/bind"
	"bindforge/internal/cast"
	"bindforge/internal/csyntax"
	"bindforge/internal/diag"
)

func opts() Options {
	return Options{
		Namespace:           "Bindings",
		ClassName:           "Native",
		LibraryName:         "native",
		FileScopedNamespace: true,
		Nullables:           true,
	}
}

func at(line, col int) diag.Location {
	return diag.Location{File: "api.h", Line: line, Column: col}
}

const goldenDocument = `// <auto-generated>
//  This code was generated by bindforge.
//
//  Changes to this file may cause incorrect behavior and will be lost if the code is regenerated.
// </auto-generated>
// ReSharper disable All

#nullable enable
#pragma warning disable CS1591
#pragma warning disable CS8981
using Interop.Runtime;
using System;
using System.Collections.Generic;
using System.Globalization;
using System.Runtime.InteropServices;
using System.Runtime.CompilerServices;

namespace Bindings;

public static unsafe partial class Native
{
    private const string LibraryName = "native";

    // function @ api.h:3:6
    [DllImport(LibraryName, EntryPoint = "add", CallingConvention = CallingConvention.Cdecl)]
    public static extern int add(int a, int b);

    // enum @ api.h:5:6
    public enum mode : int
    {
        MODE_A = 0,
        MODE_B = 1
    }
}
`

func TestEmitGolden(t *testing.T) {
	nodes := []bind.Node{
		&bind.FunctionExtern{
			Header:            bind.Header{Name: "add", CName: "add", CKind: cast.KindFunction, Location: at(3, 6)},
			EntryPoint:        "add",
			CallingConvention: "Cdecl",
			Return:            "int",
			Params:            []bind.Param{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
		},
		&bind.Enum{
			Header:     bind.Header{Name: "mode", CName: "mode", CKind: cast.KindEnum, Location: at(5, 6)},
			Underlying: "int",
			Members:    []bind.EnumMember{{Name: "MODE_A", Value: "0"}, {Name: "MODE_B", Value: "1"}},
		},
	}
	bag := diag.NewBag()
	docs, err := Emit(nodes, opts(), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(docs) != 1 || docs[0].FileName != "Native.g.cs" || len(docs[0].Members) != 2 {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].Code != goldenDocument {
		t.Fatalf("document mismatch:\n%s\nwant:\n%s", docs[0].Code, goldenDocument)
	}
}

func sampleNodes() []bind.Node {
	platforms := []string{"x86_64-pc-windows-msvc", "x86_64-unknown-linux-gnu"}
	return []bind.Node{
		&bind.FunctionExtern{
			Header:            bind.Header{Name: "run", CName: "run", CKind: cast.KindFunction, Location: at(1, 1)},
			EntryPoint:        "run",
			CallingConvention: "StdCall",
			Return:            "void",
			Params:            []bind.Param{{Name: "c", Type: "ctx*"}, {Name: "cb", Type: "callback"}, {Name: "name", Type: "CString"}},
		},
		&bind.PseudoEnum{
			Header: bind.Header{Name: "FLAG", CName: "FLAG_", CKind: cast.KindMacro},
			Constants: []*bind.MacroConstant{
				{Header: bind.Header{Name: "FLAG_A", CName: "FLAG_A", CKind: cast.KindMacro}, Type: "int", Value: "1"},
				{Header: bind.Header{Name: "FLAG_B", CName: "FLAG_B", CKind: cast.KindMacro}, Type: "int", Value: "2"},
			},
		},
		&bind.MacroConstant{
			Header: bind.Header{Name: "GREETING", CName: "GREETING", CKind: cast.KindMacro},
			Type:   "string", Value: `"hi\n"`,
		},
		&bind.Struct{
			Header: bind.Header{Name: "item", CName: "item", CKind: cast.KindRecord, Location: at(10, 8),
				Platforms: platforms, Divergent: true,
				Variants: []string{platforms[0] + ": size 64", platforms[1] + ": size 64"}},
			Size: 64, Align: 8,
			Fields: []bind.StructField{
				{Name: "name", Type: "string", Offset: 0, Size: 16, CType: "char[16]",
					Buffer: bind.BufferString, BackingName: "_name", StorageType: "byte", StorageLen: 16, ElemCount: 16},
				{Name: "vals", Type: "int", Offset: 16, Size: 16, CType: "int[4]",
					Buffer: bind.BufferFixed, StorageType: "int", StorageLen: 4, ElemCount: 4},
				{Name: "ptrs", Type: "nint", Offset: 32, Size: 16, CType: "void*[2]",
					Buffer: bind.BufferWrapped, BackingName: "_ptrs", StorageType: "ulong", StorageLen: 2, ElemCount: 2},
				{Name: "_bitfield0", Type: "uint", Offset: 48, Size: 4, CType: "int",
					Bits: []bind.Bitfield{
						{Name: "a", Type: "uint", BitOffset: 0, BitWidth: 3},
						{Name: "b", Type: "int", BitOffset: 3, BitWidth: 5},
					}},
				{Name: "Anonymous0", Type: "AnonymousUnion0", Offset: 56, Size: 8, Padding: 4, CType: "union { int i; double d; }"},
			},
			Nested: []*bind.Struct{{
				Header: bind.Header{Name: "AnonymousUnion0", CKind: cast.KindRecord, Location: at(14, 5)},
				Size:   8, Align: 8, Union: true,
				Fields: []bind.StructField{
					{Name: "i", Type: "int", Size: 4, CType: "int"},
					{Name: "d", Type: "double", Size: 8, CType: "double"},
				},
			}},
		},
		&bind.Enum{
			Header:     bind.Header{Name: "color", CName: "color", CKind: cast.KindEnum},
			Underlying: "int",
			Members: []bind.EnumMember{
				{Name: "COLOR_A", Value: "0"},
				{Name: "_COLOR_FORCE_U32", Value: "2147483647", Sentinel: true},
			},
		},
		&bind.OpaqueType{Header: bind.Header{Name: "ctx", CName: "ctx", CKind: cast.KindOpaque,
			Platforms: platforms[1:], Partial: true}},
		&bind.TypeAlias{Header: bind.Header{Name: "handle_t", CName: "handle_t", CKind: cast.KindTypedef},
			Underlying: "void*", Size: 8, Align: 8},
		&bind.FunctionPointer{Header: bind.Header{Name: "callback", CName: "callback", CKind: cast.KindFunctionPointer},
			Native: true, CallingConvention: "Cdecl", Return: "void", Params: []bind.Param{{Name: "unnamed0", Type: "int"}}},
		&bind.FunctionPointer{Header: bind.Header{Name: "legacy_cb", CName: "legacy_cb", CKind: cast.KindFunctionPointer},
			CallingConvention: "Stdcall", Return: "CBool", Params: []bind.Param{{Name: "unnamed0", Type: "CString"}}},
	}
}

func TestEmitAllNodeKinds(t *testing.T) {
	bag := diag.NewBag()
	docs, err := Emit(sampleNodes(), opts(), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	code := docs[0].Code
	if len(docs[0].Members) != 10 {
		t.Fatalf("members = %d, want 10", len(docs[0].Members))
	}
	if err := csyntax.ParseDocument(code); err != nil {
		t.Fatalf("emitted document does not parse: %v\n%s", err, code)
	}
	for _, want := range []string{
		`[DllImport(LibraryName, EntryPoint = "run", CallingConvention = CallingConvention.StdCall)]`,
		"public static extern void run(ctx* c, callback cb, CString name);",
		"// Pseudo enum 'FLAG'\n    public const int FLAG_A = 1;",
		`public const string GREETING = "hi\n";`,
		"[StructLayout(LayoutKind.Explicit, Size = 64, Pack = 8)]",
		"// Differs across platforms; this binding follows x86_64-pc-windows-msvc.",
		"public fixed byte _name[16]; // char[16]",
		"var pointer = &@this->_name[0];",
		"public fixed int vals[4]; // int[4]",
		"public fixed ulong _ptrs[2]; // void*[2]",
		"var span = new Span<nint>(pointer, 2);",
		"get => (uint)(((ulong)_bitfield0 >> 0) & 0x7UL);",
		"get => (int)((long)((ulong)_bitfield0 << 56) >> 59);",
		"set => _bitfield0 = (uint)(((ulong)_bitfield0 & ~(0x1FUL << 3)) | (((ulong)value & 0x1FUL) << 3));",
		"[FieldOffset(56)] // size = 8, padding = 4",
		"public struct AnonymousUnion0",
		"_COLOR_FORCE_U32 = 2147483647",
		"// Declared only on: x86_64-unknown-linux-gnu",
		"public static implicit operator handle_t(void* data) => new() { Data = data };",
		"public delegate* unmanaged[Cdecl]<int, void> Pointer;",
		"[UnmanagedFunctionPointer(CallingConvention.StdCall)]",
		"public unsafe delegate CBool @delegate(CString unnamed0);",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("document lacks %q", want)
		}
	}
}

func TestEmitIsIdempotent(t *testing.T) {
	first, err := Emit(sampleNodes(), opts(), diag.NopReporter{})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	second, err := Emit(sampleNodes(), opts(), diag.NopReporter{})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if first[0].Code != second[0].Code {
		t.Fatalf("two runs differ")
	}
	if formatted := csyntax.Format(first[0].Code); formatted != first[0].Code {
		t.Fatalf("emitted code is not in normal form")
	}
}

func TestEmitDropsInvalidMember(t *testing.T) {
	nodes := []bind.Node{
		&bind.MacroConstant{Header: bind.Header{Name: "event", CName: "event", CKind: cast.KindMacro, Location: at(2, 9)},
			Type: "int", Value: "1"},
		&bind.MacroConstant{Header: bind.Header{Name: "OK", CName: "OK", CKind: cast.KindMacro}, Type: "int", Value: "2"},
	}
	bag := diag.NewBag()
	docs, err := Emit(nodes, opts(), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	errs := bag.WithCode(diag.GenInvalidMember)
	if len(errs) != 1 || errs[0].Location != at(2, 9) {
		t.Fatalf("member errors = %v", errs)
	}
	if len(docs[0].Members) != 1 || !strings.Contains(docs[0].Code, "public const int OK = 2;") {
		t.Fatalf("document = %s", docs[0].Code)
	}
}

func TestEmitScaffoldError(t *testing.T) {
	o := opts()
	o.ClassName = "not a name"
	bag := diag.NewBag()
	docs, err := Emit(nil, o, diag.BagReporter{Bag: bag})
	if err == nil || !IsScaffoldError(err) {
		t.Fatalf("err = %v, want scaffold error", err)
	}
	if docs != nil {
		t.Fatalf("docs = %v, want none", docs)
	}
	if len(bag.WithCode(diag.GenInvalidScaffold)) != 1 {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
}

func TestEmitTemplateOptions(t *testing.T) {
	o := opts()
	o.FileScopedNamespace = false
	o.Nullables = false
	o.Usings = []string{"System.Numerics", "using System;"}
	o.GenerateRuntime = true
	docs, err := Emit(nil, o, diag.NopReporter{})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	code := docs[0].Code
	if strings.Contains(code, "#nullable enable") {
		t.Errorf("nullables are disabled")
	}
	if !strings.Contains(code, "using System.Numerics;\n") || strings.Count(code, "using System;\n") != 1 {
		t.Errorf("usings not merged:\n%s", code)
	}
	if !strings.Contains(code, "namespace Bindings\n{\n    public static unsafe partial class Native\n    {\n        private const string LibraryName = \"native\";\n    }\n}\n") {
		t.Errorf("braced namespace:\n%s", code)
	}
	if len(docs) != 2 || docs[1].FileName != RuntimeFileName {
		t.Fatalf("docs = %d", len(docs))
	}
	if !strings.Contains(docs[1].Code, "public readonly struct CBool") || !strings.Contains(docs[1].Code, "public readonly unsafe struct CString") {
		t.Fatalf("runtime document:\n%s", docs[1].Code)
	}
}

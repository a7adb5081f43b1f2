// Package cast holds the raw C declarations of one platform, as produced by
// the external C front end, and the loader that validates them.
//
// # Document schema
//
// One JSON document per target triple:
//
//	{
//	  "platform": "x86_64-unknown-linux-gnu",
//	  "file": "include/foo.h",
//	  "declarations": [
//	    {"kind": "record", "name": "foo_point", "size": 8, "align": 4,
//	     "location": {"file": "include/foo.h", "line": 3, "column": 9},
//	     "fields": [
//	       {"name": "x", "offset": 0, "type": {"kind": "primitive", "name": "int", "size": 4, "align": 4}},
//	       {"name": "y", "offset": 4, "type": {"kind": "primitive", "name": "int", "size": 4, "align": 4}}
//	     ]},
//	    {"kind": "enum", "name": "foo_mode", "size": 4, "extensible": true,
//	     "values": [{"name": "FOO_MODE_A", "value": 0}]},
//	    {"kind": "function", "name": "foo_init", "calling_convention": "cdecl",
//	     "return_type": {"kind": "primitive", "name": "void"},
//	     "parameters": [{"name": "p", "type": {"kind": "pointer", "name": "foo_point*",
//	       "inner": {"kind": "record", "name": "foo_point"}}}]},
//	    {"kind": "macro", "name": "FOO_VERSION", "value_kind": "int", "value": "0x0102u"}
//	  ]
//	}
//
// Declaration kinds: record, enum, function, function_pointer, typedef,
// opaque, macro. Type kinds: primitive, pointer, array, record, enum,
// typedef, function_pointer, opaque.
//
// Sizes, alignments and offsets are provider facts. They are optional; when
// present the layout calculator cross-checks its own result against them.
// A record field whose type carries an inline "record" object is an anonymous
// aggregate and may omit its name. Bitfields set "bit_width". A
// function_pointer declaration whose name is not a C identifier (the front
// end spells anonymous ones as their signature) is given a name derived from
// the signature, FnPtr_<params>_<return>, when bindings are generated.
//
// Unknown JSON members are rejected, as are missing names, negative sizes and
// pointer or array types without an element type. Every rejection is a
// *LoadError naming the offending path inside the document.
package cast

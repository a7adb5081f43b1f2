package names

import (
	"fmt"
	"strings"
	"unicode"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/unify"
)

// MappedName is the C# identifier assigned to one declaration.
type MappedName struct {
	Original string
	Target   string
	Kind     cast.Kind
}

// Options configures the identifier scope: every binding is a member of the
// generated static class.
type Options struct {
	ClassName string
}

// typePriority orders type kinds competing for one identifier; lower wins.
var typePriority = map[cast.Kind]int{
	cast.KindRecord:          0,
	cast.KindEnum:            1,
	cast.KindOpaque:          2,
	cast.KindFunctionPointer: 3,
}

// Table is the result of mapping: names per declaration plus the pseudo-enum
// grouping of macros.
type Table struct {
	names       map[cast.Key]MappedName
	skipped     map[cast.Key]string // key -> identifier that won
	pseudoEnums []PseudoEnum
	pseudoOf    map[string]int
}

// Lookup returns the mapping for a declaration.
func (t *Table) Lookup(k cast.Key) (MappedName, bool) {
	m, ok := t.names[k]
	return m, ok
}

// Target returns the identifier a reference to the declaration should use.
// A declaration that lost a type-name collision resolves to the winner.
func (t *Table) Target(k cast.Key) (string, bool) {
	if m, ok := t.names[k]; ok {
		return m.Target, true
	}
	target, ok := t.skipped[k]
	return target, ok
}

// Skipped reports whether the declaration lost a type-name collision.
func (t *Table) Skipped(k cast.Key) bool {
	_, ok := t.skipped[k]
	return ok
}

// PseudoEnums returns the macro groups in declaration order.
func (t *Table) PseudoEnums() []PseudoEnum {
	return t.pseudoEnums
}

// PseudoEnumOf returns the group a macro belongs to.
func (t *Table) PseudoEnumOf(macro string) (PseudoEnum, bool) {
	i, ok := t.pseudoOf[macro]
	if !ok {
		return PseudoEnum{}, false
	}
	return t.pseudoEnums[i], true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// Map assigns identifiers to nodes in order. Type kinds claim names first;
// functions and macro constants that would collide with a type, the class or
// each other are renamed with trailing underscores. Type aliases keep their
// name and are resolved against emitted types by the binding mapper.
func Map(nodes []*unify.Node, opts Options, r diag.Reporter) *Table {
	t := &Table{
		names:    make(map[cast.Key]MappedName, len(nodes)),
		skipped:  make(map[cast.Key]string),
		pseudoOf: make(map[string]int),
	}
	// identifiers taken in the class scope, with the key that holds them
	taken := map[string]cast.Key{
		"LibraryName": {},
	}
	if opts.ClassName != "" {
		taken[opts.ClassName] = cast.Key{}
	}
	winner := make(map[string]cast.Key)

	// pass 1: types, by kind priority, then order
	for _, n := range nodes {
		pri, isType := typePriority[n.Kind]
		if !isType {
			continue
		}
		target := typeName(n)
		for target == opts.ClassName || target == "LibraryName" {
			target = strings.TrimPrefix(target, "@") + "_"
		}
		if prevKey, clash := winner[target]; clash {
			if typePriority[prevKey.Kind] <= pri {
				t.skip(r, n, target, prevKey)
				continue
			}
			// the newcomer outranks the holder
			t.skip(r, lookupNode(nodes, prevKey), target, n.Key())
			delete(t.names, prevKey)
		}
		winner[target] = n.Key()
		taken[target] = n.Key()
		t.names[n.Key()] = MappedName{Original: n.Name, Target: target, Kind: n.Kind}
	}

	// pass 2: aliases keep their sanitized name and claim it only when free
	for _, n := range nodes {
		if n.Kind != cast.KindTypedef {
			continue
		}
		t.names[n.Key()] = MappedName{Original: n.Name, Target: Sanitize(n.Name), Kind: n.Kind}
	}
	for _, n := range nodes {
		if n.Kind != cast.KindTypedef {
			continue
		}
		target := t.names[n.Key()].Target
		if _, clash := taken[target]; !clash {
			taken[target] = n.Key()
		}
	}

	// pass 3: functions, then macro constants
	for _, kind := range []cast.Kind{cast.KindFunction, cast.KindMacro} {
		for _, n := range nodes {
			if n.Kind != kind {
				continue
			}
			base := Sanitize(n.Name)
			target := base
			for {
				if _, clash := taken[target]; !clash {
					break
				}
				target = strings.TrimPrefix(target, "@") + "_"
			}
			if target != base {
				diag.ReportInfo(r, diag.MapNameRenamed, n.Decl.Loc(),
					fmt.Sprintf("%s %q is emitted as %q to avoid a name collision", n.Kind, n.Name, target)).
					Emit()
			}
			taken[target] = n.Key()
			t.names[n.Key()] = MappedName{Original: n.Name, Target: target, Kind: n.Kind}
		}
	}

	var macros []*cast.Macro
	for _, n := range nodes {
		if m, ok := n.Decl.(*cast.Macro); ok {
			macros = append(macros, m)
		}
	}
	t.pseudoEnums = GroupPseudoEnums(macros)
	for i, g := range t.pseudoEnums {
		for _, m := range g.Members {
			t.pseudoOf[m] = i
		}
	}
	return t
}

func typeName(n *unify.Node) string {
	if n.Kind == cast.KindFunctionPointer && !isIdentifier(n.Name) {
		if fp, ok := n.Decl.(*cast.FunctionPointer); ok {
			return FunctionPointerName(&fp.Return, fp.Params)
		}
	}
	return Sanitize(n.Name)
}

func (t *Table) skip(r diag.Reporter, n *unify.Node, target string, winner cast.Key) {
	if n == nil {
		return
	}
	t.skipped[n.Key()] = target
	diag.ReportWarning(r, diag.MapNameCollision, n.Decl.Loc(),
		fmt.Sprintf("%s %q is skipped: the name %q is taken by %s %q", n.Kind, n.Name, target, winner.Kind, winner.Name)).
		Emit()
}

func lookupNode(nodes []*unify.Node, k cast.Key) *unify.Node {
	for _, n := range nodes {
		if n.Kind == k.Kind && n.Name == k.Name {
			return n
		}
	}
	return nil
}

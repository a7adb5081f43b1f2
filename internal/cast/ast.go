package cast

import (
	"bindforge/internal/platform"
)

// Key is the stable identity of a declaration across platforms.
type Key struct {
	Kind Kind
	Name string
}

// AST is one platform's view of the header: declarations in source order.
// It is immutable once Load returns.
type AST struct {
	Platform platform.Platform
	File     string
	Decls    []Decl

	index map[Key]int
}

// NewAST builds an AST from already-validated declarations. Duplicate keys
// keep the first declaration.
func NewAST(p platform.Platform, file string, decls []Decl) *AST {
	a := &AST{
		Platform: p,
		File:     file,
		Decls:    decls,
		index:    make(map[Key]int, len(decls)),
	}
	for i, d := range decls {
		k := Key{Kind: d.Kind(), Name: d.DeclName()}
		if _, ok := a.index[k]; !ok {
			a.index[k] = i
		}
	}
	return a
}

// Lookup finds a declaration by kind and name.
func (a *AST) Lookup(kind Kind, name string) (Decl, bool) {
	if a == nil {
		return nil, false
	}
	i, ok := a.index[Key{Kind: kind, Name: name}]
	if !ok {
		return nil, false
	}
	return a.Decls[i], true
}

// Position returns the declaration index of a key, or -1.
func (a *AST) Position(k Key) int {
	if a == nil {
		return -1
	}
	if i, ok := a.index[k]; ok {
		return i
	}
	return -1
}

// Records returns every top-level record in declaration order.
func (a *AST) Records() []*Record {
	var out []*Record
	for _, d := range a.Decls {
		if r, ok := d.(*Record); ok {
			out = append(out, r)
		}
	}
	return out
}

// Resolve follows typedef chains until a non-typedef reference is found.
func (a *AST) Resolve(t *TypeRef) *TypeRef {
	seen := make(map[string]struct{}, 4)
	for t != nil && t.Kind == TypeTypedef {
		if _, ok := seen[t.Name]; ok {
			return t
		}
		seen[t.Name] = struct{}{}
		d, ok := a.Lookup(KindTypedef, t.Name)
		if !ok {
			return t
		}
		t = &d.(*Typedef).Underlying
	}
	return t
}

// Package unify joins the per-platform ASTs into one canonical declaration
// set and detects declarations whose ABI differs between platforms.
package unify

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/layout"
	"bindforge/internal/platform"
)

// PlatformAST is one platform's declarations with their computed layouts.
// Records missing from Layouts failed layout calculation: they get no variant
// on that platform and their node is marked divergent.
type PlatformAST struct {
	AST     *cast.AST
	Layouts *layout.Table
}

// Variant is a declaration as one platform sees it.
type Variant struct {
	Platform platform.Platform
	AST      *cast.AST
	Layouts  *layout.Table
	Decl     cast.Decl
	Layout   *layout.Info // records only
	sig      string
}

// Node is the platform-unified form of a declaration.
type Node struct {
	Kind cast.Kind
	Name string
	// Decl is the representative declaration: the variant of the first
	// platform, by triple, that has the node.
	Decl cast.Decl
	// Layout is set for records whose layout agrees on every platform.
	Layout      *layout.Info
	PerPlatform map[string]Variant
	Divergent   bool
	// Platforms lists, sorted, the triples that declare the node.
	Platforms []string
	// Partial is set when some requested platform lacks the node.
	Partial bool
	// LayoutFailed lists, sorted, the triples that declare the record but
	// could not lay it out.
	LayoutFailed []string
	Order        int
}

// Key is the cross-platform identity of the node.
func (n *Node) Key() cast.Key {
	return cast.Key{Kind: n.Kind, Name: n.Name}
}

// Representative returns the variant the binding is generated from.
func (n *Node) Representative() Variant {
	return n.PerPlatform[n.Platforms[0]]
}

// RepresentativeLayout returns Layout, or for a divergent record the layout
// of the representative platform.
func (n *Node) RepresentativeLayout() *layout.Info {
	if n.Layout != nil {
		return n.Layout
	}
	return n.Representative().Layout
}

// Variants returns the per-platform variants sorted by triple.
func (n *Node) Variants() []Variant {
	out := make([]Variant, 0, len(n.Platforms))
	for _, p := range n.Platforms {
		out = append(out, n.PerPlatform[p])
	}
	return out
}

// Unify is a pure join of the platform ASTs keyed by (kind, name). Inputs are
// not modified. Nodes come back in first-seen order with platforms visited by
// sorted triple, so the result does not depend on the order of asts.
func Unify(asts []PlatformAST, r diag.Reporter) []*Node {
	sorted := slices.Clone(asts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AST.Platform.Triple < sorted[j].AST.Platform.Triple
	})

	var nodes []*Node
	byKey := make(map[cast.Key]*Node)
	failed := make(map[cast.Key][]string)
	for _, pa := range sorted {
		triple := pa.AST.Platform.Triple
		calc := layout.New(pa.AST)
		for _, d := range pa.AST.Decls {
			v := Variant{Platform: pa.AST.Platform, AST: pa.AST, Layouts: pa.Layouts, Decl: d}
			if rec, ok := d.(*cast.Record); ok {
				info, ok := pa.Layouts.Get(rec.Name)
				if !ok {
					k := cast.Key{Kind: cast.KindRecord, Name: rec.Name}
					if !slices.Contains(failed[k], triple) {
						failed[k] = append(failed[k], triple)
					}
					continue
				}
				v.Layout = &info
			}
			v.sig = signature(calc, pa.Layouts, d)

			k := cast.Key{Kind: d.Kind(), Name: d.DeclName()}
			n, ok := byKey[k]
			if !ok {
				n = &Node{
					Kind:        k.Kind,
					Name:        k.Name,
					Decl:        d,
					PerPlatform: make(map[string]Variant, len(sorted)),
					Order:       len(nodes),
				}
				byKey[k] = n
				nodes = append(nodes, n)
			}
			if _, dup := n.PerPlatform[triple]; dup {
				continue
			}
			n.PerPlatform[triple] = v
			n.Platforms = append(n.Platforms, triple)
		}
	}

	for _, n := range nodes {
		rep := n.PerPlatform[n.Platforms[0]]
		n.LayoutFailed = failed[n.Key()]
		n.Partial = len(n.Platforms)+len(n.LayoutFailed) < len(sorted)
		n.Divergent = len(n.LayoutFailed) > 0
		for _, p := range n.Platforms[1:] {
			if !n.Divergent && !agree(rep, n.PerPlatform[p]) {
				n.Divergent = true
				break
			}
		}
		if !n.Divergent && rep.Layout != nil {
			n.Layout = rep.Layout
		}
		if n.Divergent {
			reportDivergence(r, n)
		}
		if n.Partial {
			missing := make([]string, 0, len(sorted))
			for _, pa := range sorted {
				t := pa.AST.Platform.Triple
				if _, ok := n.PerPlatform[t]; !ok && !slices.Contains(n.LayoutFailed, t) {
					missing = append(missing, t)
				}
			}
			diag.ReportInfo(r, diag.DivPartialPlatforms, n.Decl.Loc(),
				fmt.Sprintf("%s %q is declared only on %s (missing on %s)",
					n.Kind, n.Name, strings.Join(n.Platforms, ", "), strings.Join(missing, ", "))).
				Emit()
		}
	}
	return nodes
}

func agree(a, b Variant) bool {
	if a.Layout != nil || b.Layout != nil {
		if !a.Layout.Equal(b.Layout) {
			return false
		}
	}
	return a.sig == b.sig
}

func reportDivergence(r diag.Reporter, n *Node) {
	msg := fmt.Sprintf("%s %q differs across platforms; the binding follows %s", n.Kind, n.Name, n.Platforms[0])
	if len(n.LayoutFailed) > 0 {
		msg = fmt.Sprintf("%s %q could not be laid out on %s; the binding follows %s",
			n.Kind, n.Name, strings.Join(n.LayoutFailed, ", "), n.Platforms[0])
	}
	b := diag.ReportWarning(r, diag.DivLayout, n.Decl.Loc(), msg)
	for _, v := range n.Variants() {
		b.WithNote(v.Decl.Loc(), v.Platform.Triple+": "+describe(v))
	}
	for _, t := range n.LayoutFailed {
		b.WithNote(n.Decl.Loc(), t+": layout failed")
	}
	b.Emit()
}

// describe summarizes a variant for notes and emitted comments.
func describe(v Variant) string {
	if v.Layout != nil {
		parts := make([]string, 0, len(v.Layout.Fields))
		for _, f := range v.Layout.Fields {
			parts = append(parts, fmt.Sprintf("%s@%d", f.Name, f.Offset))
		}
		return fmt.Sprintf("size %d, align %d, fields %s", v.Layout.Size, v.Layout.Align, strings.Join(parts, " "))
	}
	return v.sig
}

// Describe is describe for callers outside the package.
func (v Variant) Describe() string {
	return describe(v)
}

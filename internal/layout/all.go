package layout

import (
	"time"

	"go.uber.org/zap"

	"bindforge/internal/cast"
	"bindforge/internal/dag"
	"bindforge/internal/diag"
)

// CalculateAll computes every top-level record of ast leaves-first. Records
// that cannot be laid out are reported through r and left out of the table;
// the remaining records are still calculated.
func CalculateAll(ast *cast.AST, r diag.Reporter) *Table {
	start := time.Now()
	table := NewTable()
	c := New(ast)

	records := ast.Records()
	byName := make(map[string]*cast.Record, len(records))
	nodes := make([]dag.Node, 0, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
		nodes = append(nodes, dag.Node{Name: rec.Name, Deps: Dependencies(ast, rec)})
	}

	idx := dag.BuildIndex(nodes)
	g, missing := dag.BuildGraph(idx, nodes)
	for _, m := range missing {
		// зависимость не объявлена как record: расчёт сам определит точную причину
		Logger().Debug("record dependency is not a record declaration",
			zap.String("platform", ast.Platform.Triple),
			zap.String("record", m.From),
			zap.String("dep", m.To))
	}
	topo := dag.ToposortKahn(g)

	fail := func(rec *cast.Record, err *LayoutError) {
		table.Fail(rec.Name, err)
		diag.ReportError(r, err.Code(), rec.Location, err.Error()).
			WithPlatform(ast.Platform.Triple).
			Emit()
	}

	for _, id := range topo.Order {
		rec := byName[idx.IDToName[int(id)]]
		if failedDep := firstFailedDependency(ast, rec, table); failedDep != "" {
			fail(rec, &LayoutError{Kind: LayoutErrMissingDependency, Record: rec.Name, Dep: failedDep})
			continue
		}
		info, err := c.Calculate(rec, table)
		if err != nil {
			lerr, ok := err.(*LayoutError)
			if !ok {
				lerr = &LayoutError{Kind: LayoutErrInvariant, Record: rec.Name, Err: err}
			}
			fail(rec, lerr)
			continue
		}
		table.Put(rec.Name, info)
	}

	if topo.Cyclic {
		cycle := idx.Names(topo.Cycles)
		for _, name := range cycle {
			fail(byName[name], &LayoutError{Kind: LayoutErrRecursive, Record: name, Cycle: cycle})
		}
		for _, name := range idx.Names(topo.Blocked) {
			rec := byName[name]
			dep := firstFailedDependency(ast, rec, table)
			if dep == "" {
				dep = cycle[0]
			}
			fail(rec, &LayoutError{Kind: LayoutErrMissingDependency, Record: name, Dep: dep})
		}
	}

	Logger().Debug("layout calculated",
		zap.String("platform", ast.Platform.Triple),
		zap.Int("records", len(records)),
		zap.Int("ok", table.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return table
}

func firstFailedDependency(ast *cast.AST, rec *cast.Record, table *Table) string {
	for _, dep := range Dependencies(ast, rec) {
		if _, failed := table.Failed(dep); failed {
			return dep
		}
	}
	return ""
}

// Dependencies lists the records rec embeds by value, directly, through
// arrays, typedef chains or inline anonymous members. Pointers break the
// dependency.
func Dependencies(ast *cast.AST, rec *cast.Record) []string {
	var out []string
	seen := make(map[string]struct{})
	var walkRecord func(r *cast.Record)
	var walkType func(t *cast.TypeRef, depth int)
	walkType = func(t *cast.TypeRef, depth int) {
		if t == nil || depth > maxTypedefDepth {
			return
		}
		switch t.Kind {
		case cast.TypeArray:
			walkType(t.Inner, depth+1)
		case cast.TypeRecord:
			if t.Anonymous != nil {
				walkRecord(t.Anonymous)
				return
			}
			if _, ok := seen[t.Name]; !ok {
				seen[t.Name] = struct{}{}
				out = append(out, t.Name)
			}
		case cast.TypeTypedef:
			if d, ok := ast.Lookup(cast.KindTypedef, t.Name); ok {
				walkType(&d.(*cast.Typedef).Underlying, depth+1)
			}
		}
	}
	walkRecord = func(r *cast.Record) {
		for i := range r.Fields {
			walkType(&r.Fields[i].Type, 0)
		}
	}
	walkRecord(rec)
	return out
}

package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"bindforge/internal/bind"
	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/emit"
	"bindforge/internal/layout"
	"bindforge/internal/names"
	"bindforge/internal/observ"
	"bindforge/internal/unify"
	"bindforge/internal/verify"
)

// Options configures one generation run.
type Options struct {
	Platforms []PlatformInput
	Jobs      int
	Cache     *DiskCache
	Bind      bind.Options
	Emit      emit.Options
	// Verifier is optional; nil skips the verify stage.
	Verifier verify.Verifier
	Sink     ProgressSink
	// EnableTimings records stage durations in Result.Timings and as a
	// DRV7000 info diagnostic.
	EnableTimings bool
}

// Result is everything a run produced. Bag is always set, also when
// Generate returns an error.
type Result struct {
	Bag       *diag.Bag
	ASTs      []*cast.AST
	Unified   []*unify.Node
	Nodes     []bind.Node
	Documents []emit.Document
	Findings  []verify.Finding
	CacheHits int
	Timings   *observ.Report
}

// Failed reports whether the run recorded an error or a panic.
func (r *Result) Failed() bool {
	return r == nil || r.Bag.HasErrors()
}

// PanicError is returned when a stage panicked. The panic is already in the
// bag as PNC9001 with the stack attached.
type PanicError struct {
	Stage Stage
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("internal error in %s stage: %v", e.Stage, e.Value)
}

func recovered(r diag.Reporter, stage Stage, p any) *PanicError {
	diag.ReportPanic(r, diag.Location{}, fmt.Sprintf("%s stage panicked: %v", stage, p)).
		WithNote(diag.Location{}, string(debug.Stack())).
		Emit()
	Logger().Error("stage panicked", zap.String("stage", string(stage)), zap.Any("value", p))
	return &PanicError{Stage: stage, Value: p}
}

// guard runs one stage and turns a panic into a diagnostic.
func guard(r diag.Reporter, stage Stage, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(r, stage, p)
		}
	}()
	return fn()
}

// Generate runs the whole pipeline: load, layout, unify, names, bind, emit
// and, when a verifier is configured, verify. Per-declaration problems are
// diagnostics and do not stop the run; a load failure, an invalid document
// template or a panic does, and is returned as the error.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{Bag: diag.NewBag()}
	r := diag.BagReporter{Bag: res.Bag}

	var timer *observ.Timer
	if opts.EnableTimings {
		timer = observ.NewTimer()
	}
	begin := func(stage Stage) (int, time.Time) {
		notify(opts.Sink, Event{Stage: stage, Status: StatusWorking})
		if timer == nil {
			return -1, time.Now()
		}
		return timer.Begin(string(stage)), time.Now()
	}
	end := func(stage Stage, idx int, start time.Time, note string, err error) {
		status := StatusDone
		if err != nil {
			status = StatusError
		}
		notify(opts.Sink, Event{Stage: stage, Status: status, Err: err, Elapsed: time.Since(start)})
		if timer != nil && idx >= 0 {
			timer.End(idx, note)
		}
	}
	finish := func(err error) (*Result, error) {
		if timer != nil {
			report := timer.Report()
			res.Timings = &report
			appendTimingDiagnostic(res.Bag, report)
		}
		res.Bag.Sort()
		return res, err
	}

	// load
	idx, start := begin(StageLoad)
	var loaded *LoadResult
	err := guard(r, StageLoad, func() error {
		var lerr error
		loaded, lerr = LoadPlatforms(ctx, opts.Platforms, LoadOptions{Jobs: opts.Jobs, Cache: opts.Cache, Sink: opts.Sink}, r)
		return lerr
	})
	end(StageLoad, idx, start, fmt.Sprintf("platforms=%d", len(opts.Platforms)), err)
	if err != nil {
		return finish(err)
	}
	res.ASTs, res.CacheHits = loaded.ASTs, loaded.CacheHits

	// layout
	idx, start = begin(StageLayout)
	platforms := make([]unify.PlatformAST, len(res.ASTs))
	err = guard(r, StageLayout, func() error {
		for i, ast := range res.ASTs {
			pstart := time.Now()
			notify(opts.Sink, Event{Platform: ast.Platform.Triple, Stage: StageLayout, Status: StatusWorking})
			table := layout.CalculateAll(ast, diag.PlatformReporter{Next: r, Platform: ast.Platform.Triple})
			platforms[i] = unify.PlatformAST{AST: ast, Layouts: table}
			notify(opts.Sink, Event{Platform: ast.Platform.Triple, Stage: StageLayout, Status: StatusDone, Elapsed: time.Since(pstart)})
		}
		return nil
	})
	end(StageLayout, idx, start, "", err)
	if err != nil {
		return finish(err)
	}

	// unify
	idx, start = begin(StageUnify)
	err = guard(r, StageUnify, func() error {
		res.Unified = unify.Unify(platforms, r)
		return nil
	})
	end(StageUnify, idx, start, fmt.Sprintf("nodes=%d", len(res.Unified)), err)
	if err != nil {
		return finish(err)
	}

	// names
	className := opts.Emit.ClassName
	idx, start = begin(StageNames)
	var table *names.Table
	err = guard(r, StageNames, func() error {
		table = names.Map(res.Unified, names.Options{ClassName: className}, r)
		return nil
	})
	end(StageNames, idx, start, "", err)
	if err != nil {
		return finish(err)
	}

	// bind
	bindOpts := opts.Bind
	if bindOpts.ClassName == "" {
		bindOpts.ClassName = className
	}
	idx, start = begin(StageBind)
	err = guard(r, StageBind, func() error {
		res.Nodes = bind.Map(res.Unified, table, bindOpts, r)
		return nil
	})
	end(StageBind, idx, start, fmt.Sprintf("nodes=%d", len(res.Nodes)), err)
	if err != nil {
		return finish(err)
	}

	// emit
	idx, start = begin(StageEmit)
	err = guard(r, StageEmit, func() error {
		var eerr error
		res.Documents, eerr = emit.Emit(res.Nodes, opts.Emit, r)
		return eerr
	})
	end(StageEmit, idx, start, fmt.Sprintf("documents=%d", len(res.Documents)), err)
	if err != nil {
		return finish(err)
	}

	// verify
	if opts.Verifier == nil {
		notify(opts.Sink, Event{Stage: StageVerify, Status: StatusSkipped})
		return finish(nil)
	}
	idx, start = begin(StageVerify)
	err = guard(r, StageVerify, func() error {
		res.Findings = verify.Run(ctx, opts.Verifier, res.Documents, r)
		return nil
	})
	end(StageVerify, idx, start, fmt.Sprintf("findings=%d", len(res.Findings)), err)
	Logger().Debug("run finished",
		zap.Int("documents", len(res.Documents)),
		zap.Int("diagnostics", res.Bag.Len()),
		zap.Bool("failed", res.Failed()))
	return finish(err)
}

// IsPanic reports whether err came from a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

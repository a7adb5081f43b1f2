package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
)

// PlatformInput is one requested target and the AST document produced for it.
type PlatformInput struct {
	Triple string // may be empty: the document's own platform is taken
	Path   string
}

// LoadOptions configures LoadPlatforms.
type LoadOptions struct {
	// Jobs limits concurrent loads; 0 means GOMAXPROCS.
	Jobs  int
	Cache *DiskCache
	Sink  ProgressSink
}

// LoadResult holds the platform ASTs in input order.
type LoadResult struct {
	ASTs      []*cast.AST
	CacheHits int
}

// LoadPlatforms reads every platform document concurrently. Each goroutine
// writes only its own slot, so the result order is the input order no matter
// how loads interleave. Every failed document is reported through r; the
// first failure, in input order, is returned.
func LoadPlatforms(ctx context.Context, inputs []PlatformInput, opts LoadOptions, r diag.Reporter) (*LoadResult, error) {
	if len(inputs) == 0 {
		err := errors.New("no platforms requested")
		diag.ReportError(r, diag.LoadNoPlatforms, diag.Location{}, err.Error()).Emit()
		return nil, err
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	asts := make([]*cast.AST, len(inputs))
	errs := make([]error, len(inputs))
	var hits atomic.Int32

	for _, in := range inputs {
		notify(opts.Sink, Event{Platform: label(in), Stage: StageLoad, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(inputs)))
	for i, in := range inputs {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					errs[i] = recovered(r, StageLoad, p)
				}
			}()
			// Проверка отмены
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			start := time.Now()
			notify(opts.Sink, Event{Platform: label(in), Stage: StageLoad, Status: StatusWorking})
			ast, hit, err := loadOne(in, opts.Cache, r)
			if hit {
				hits.Add(1)
			}
			asts[i], errs[i] = ast, err
			status := StatusDone
			if err != nil {
				status = StatusError
			}
			notify(opts.Sink, Event{Platform: label(in), Stage: StageLoad, Status: status, Err: err, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// дубликаты проверяются после join: порядок входа, а не порядок завершения
	seen := make(map[string]int, len(inputs))
	for i, ast := range asts {
		if errs[i] != nil {
			continue
		}
		if prev, dup := seen[ast.Platform.Triple]; dup {
			errs[i] = &cast.LoadError{Kind: cast.LoadErrPlatformMismatch, File: inputs[i].Path, Path: "platform",
				Err: fmt.Errorf("platform %s is already provided by %s", ast.Platform.Triple, inputs[prev].Path)}
			continue
		}
		seen[ast.Platform.Triple] = i
	}

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		var pe *PanicError
		if !errors.As(err, &pe) {
			reportLoadError(r, inputs[i], err)
		}
		if first == nil {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}
	return &LoadResult{ASTs: asts, CacheHits: int(hits.Load())}, nil
}

func label(in PlatformInput) string {
	if in.Triple != "" {
		return in.Triple
	}
	return in.Path
}

// loadOne reads, decodes (or fetches from cache) and validates one document.
func loadOne(in PlatformInput, cache *DiskCache, r diag.Reporter) (*cast.AST, bool, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, false, &cast.LoadError{Kind: cast.LoadErrIO, File: in.Path, Err: err}
	}

	var (
		doc *cast.Document
		hit bool
	)
	key := contentDigest(data)
	if cache != nil {
		var payload DiskPayload
		ok, cerr := cache.Get(key, &payload)
		switch {
		case cerr != nil:
			reportCacheError(r, in, "read", cerr)
		case ok:
			doc, hit = payload.Document, true
		}
	}
	if doc == nil {
		if doc, err = cast.Decode(bytes.NewReader(data), in.Path); err != nil {
			return nil, false, err
		}
		if cache != nil {
			if cerr := cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion, Source: in.Path, Digest: key, Document: doc}); cerr != nil {
				reportCacheError(r, in, "write", cerr)
			}
		}
	}

	ast, err := cast.Build(doc, in.Path)
	if err != nil {
		return nil, hit, err
	}
	if in.Triple != "" && ast.Platform.Triple != in.Triple {
		return nil, hit, &cast.LoadError{Kind: cast.LoadErrPlatformMismatch, File: in.Path, Path: "platform",
			Err: fmt.Errorf("document is for %s, requested %s", ast.Platform.Triple, in.Triple)}
	}
	Logger().Debug("platform loaded",
		zap.String("platform", ast.Platform.Triple),
		zap.String("file", in.Path),
		zap.Int("decls", len(ast.Decls)),
		zap.Bool("cached", hit))
	return ast, hit, nil
}

func reportLoadError(r diag.Reporter, in PlatformInput, err error) {
	code := diag.LoadIO
	var le *cast.LoadError
	if errors.As(err, &le) {
		code = le.Code()
	}
	b := diag.ReportError(r, code, diag.Location{File: in.Path}, err.Error())
	if in.Triple != "" {
		b = b.WithPlatform(in.Triple)
	}
	b.Emit()
}

func reportCacheError(r diag.Reporter, in PlatformInput, op string, err error) {
	Logger().Warn("ast cache "+op+" failed", zap.String("file", in.Path), zap.Error(err))
	diag.ReportWarning(r, diag.DrvCacheError, diag.Location{File: in.Path},
		fmt.Sprintf("AST cache %s failed: %v", op, err)).Emit()
}

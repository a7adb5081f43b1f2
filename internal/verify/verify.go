// Package verify hands the generated documents to a C# compiler and folds
// what it reports back into the diagnostics bag. The compiler is optional:
// when it cannot be started the run records CMP6002 and carries on.
package verify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bindforge/internal/diag"
	"bindforge/internal/emit"
)

// Finding is one compiler message about generated code.
type Finding struct {
	Severity diag.Severity
	Message  string
	// Location points into the generated file, not the C header.
	Location diag.Location
}

// Verifier compiles documents and reports what the compiler said. A
// non-nil error means no verdict was reached.
type Verifier interface {
	Verify(ctx context.Context, docs []emit.Document) ([]Finding, error)
}

// ErrUnavailable wraps failures to start the compiler at all.
var ErrUnavailable = errors.New("compiler unavailable")

// Run verifies docs and merges the result into r. Findings become CMP6001
// with their own severity; a verifier that cannot run becomes a CMP6002
// warning. The returned findings are those merged.
func Run(ctx context.Context, v Verifier, docs []emit.Document, r diag.Reporter) []Finding {
	if v == nil {
		return nil
	}
	findings, err := v.Verify(ctx, docs)
	if err != nil {
		Logger().Debug("verification skipped", zap.Error(err))
		diag.ReportWarning(r, diag.CmpUnavailable, diag.Location{},
			fmt.Sprintf("generated code was not verified: %v", err)).Emit()
		return nil
	}
	Merge(findings, r)
	Logger().Debug("verified", zap.Int("documents", len(docs)), zap.Int("findings", len(findings)))
	return findings
}

// Merge reports each finding as CMP6001.
func Merge(findings []Finding, r diag.Reporter) {
	for _, f := range findings {
		diag.NewReportBuilder(r, f.Severity, diag.CmpFinding, f.Location, f.Message).Emit()
	}
}

// Func adapts a function to Verifier.
type Func func(ctx context.Context, docs []emit.Document) ([]Finding, error)

func (f Func) Verify(ctx context.Context, docs []emit.Document) ([]Finding, error) {
	return f(ctx, docs)
}

package diag

// Reporter: минимальный контракт получения диагностик от фаз.
// Реализации: BagReporter (кладёт в Bag), NopReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// ReportBuilder accumulates diagnostic details before emitting to Reporter.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

// NewReportBuilder constructs a builder bound to Reporter.
func NewReportBuilder(r Reporter, sev Severity, code Code, loc Location, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		diag:     New(sev, code, loc, msg),
	}
}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, loc Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, loc, msg)
}

// ReportWarning is a shortcut for SevWarning diagnostics.
func ReportWarning(r Reporter, code Code, loc Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, loc, msg)
}

// ReportInfo is a shortcut for SevInfo diagnostics.
func ReportInfo(r Reporter, code Code, loc Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevInfo, code, loc, msg)
}

// ReportPanic is a shortcut for SevPanic diagnostics.
func ReportPanic(r Reporter, loc Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevPanic, PanicInternal, loc, msg)
}

// WithNote appends a note to diagnostic.
func (b *ReportBuilder) WithNote(loc Location, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag = b.diag.WithNote(loc, msg)
	return b
}

// WithPlatform ties the diagnostic to one target triple.
func (b *ReportBuilder) WithPlatform(triple string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag = b.diag.WithPlatform(triple)
	return b
}

// Emit sends diagnostic to underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag)
	}
	b.emitted = true
}

// BagReporter: адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// PlatformReporter stamps every diagnostic with a target triple before
// forwarding it.
type PlatformReporter struct {
	Next     Reporter
	Platform string
}

func (r PlatformReporter) Report(d Diagnostic) {
	if r.Next == nil {
		return
	}
	if d.Platform == "" {
		d.Platform = r.Platform
	}
	r.Next.Report(d)
}

// Package diag defines the diagnostic model shared by all pipeline stages.
//
// # Purpose
//
//   - Provide deterministic data structures that capture findings produced by
//     AST loading, layout calculation, cross-platform unification, binding
//     mapping, code emission and compiler verification.
//   - Offer light-weight utilities (Reporter, Bag) that let stages emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does not perform any formatting, IO or CLI integration.
// Rendering lives in internal/diagfmt; orchestration lives in internal/driver.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – Info, Warning, Error or Panic. Panic marks an internal fault
//     (a bug in the tool or a collaborator) rather than a problem with the
//     input, and always fails the run.
//   - Code – compact numeric identifier (see codes.go) with a stable string
//     form; the code range determines the originating Stage.
//   - Message – human oriented text; keep it short and actionable.
//   - Location – optional header file position of the declaration.
//   - Platform – optional target triple when the finding is platform specific.
//   - Notes – optional secondary locations/messages.
//
// # Emitting diagnostics
//
// Stages receive a diag.Reporter explicitly; there is no global sink. The
// ReportBuilder helpers (ReportError/ReportWarning/ReportInfo/ReportPanic)
// chain WithNote / WithPlatform before Emit. diag.BagReporter aggregates into
// a Bag, which is safe for concurrent appends from platform loaders and never
// drops entries.
package diag

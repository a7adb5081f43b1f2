package diag

import "strings"

// Severity orders diagnostics from informational to internal faults.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	// SevError drops the node it is attached to and fails the run.
	SevError
	// SevPanic marks a recovered internal fault; the run is treated as failed.
	SevPanic
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
	SevPanic:   "PANIC",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// Fatal reports whether the severity fails the node or the run.
func (s Severity) Fatal() bool {
	return s >= SevError
}

// ParseSeverity accepts a severity name in any case, as printed by String
// or as written by compilers ("error", "warning", "info").
func ParseSeverity(word string) (Severity, bool) {
	word = strings.ToUpper(strings.TrimSpace(word))
	for s, name := range severityNames {
		if name == word {
			return Severity(s), true
		}
	}
	return SevInfo, false
}

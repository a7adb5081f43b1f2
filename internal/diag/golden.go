package diag

import (
	"fmt"
	"sort"
	"strings"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Location string
	Platform string
	Message  string
}

// FormatGoldenDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation suitable for golden strings in tests. Entries are sorted
// deterministically and returned as a single string (empty when nothing remains).
func FormatGoldenDiagnostics(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}

	rendered := make([]goldenDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = append(rendered, goldenDiagnostic{
			Severity: severityLabel(d.Severity),
			Code:     d.Code.ID(),
			Location: d.Location.String(),
			Platform: d.Platform,
			Message:  flatten(d.Message),
		})
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			rendered = append(rendered, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Location: n.Location.String(),
				Platform: d.Platform,
				Message:  flatten(n.Msg),
			})
		}
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Location != dj.Location {
			return di.Location < dj.Location
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		if di.Platform != dj.Platform {
			return di.Platform < dj.Platform
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s %s", d.Severity, d.Code, d.Location, d.Message)
		if d.Platform != "" {
			fmt.Fprintf(&b, " [%s]", d.Platform)
		}
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func severityLabel(sev Severity) string {
	return strings.ToLower(sev.String())
}

func flatten(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}

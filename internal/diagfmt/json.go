package diagfmt

import (
	"encoding/json"
	"io"

	"bindforge/internal/diag"
)

// LocationJSON представляет местоположение в заголовке для JSON
type LocationJSON struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Stage    string        `json:"stage"`
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
	Platform string        `json:"platform,omitempty"`
	Notes    []NoteJSON    `json:"notes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

func makeLocation(loc diag.Location, opts JSONOpts) *LocationJSON {
	if loc.IsZero() {
		return nil
	}
	return &LocationJSON{
		File:   formatPath(loc.File, opts.PathMode, opts.BaseDir),
		Line:   loc.Line,
		Column: loc.Column,
	}
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
// Counts cover the whole bag even when Max truncates the list.
func BuildDiagnosticsOutput(bag *diag.Bag, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, maxItems)}
	for i, d := range items {
		switch {
		case d.Severity.Fatal():
			out.Errors++
		case d.Severity == diag.SevWarning:
			out.Warnings++
		}
		if i >= maxItems {
			continue
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Stage:    string(d.Stage()),
			Message:  d.Message,
			Location: makeLocation(d.Location, opts),
			Platform: d.Platform,
		}
		// timings are only useful with their payload
		includeNotes := opts.IncludeNotes || d.Code == diag.DrvInfo
		if includeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, n := range d.Notes {
				dj.Notes[j] = NoteJSON{Message: n.Msg, Location: makeLocation(n.Location, opts)}
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, opts))
}

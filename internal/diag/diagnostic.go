package diag

import "fmt"

// Location points into the C header a declaration came from.
type Location struct {
	File   string
	Line   int
	Column int
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

func (l Location) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

type Note struct {
	Location Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Location Location
	// Platform is the target triple the finding is specific to, if any.
	Platform string
	Notes    []Note
}

// Stage returns the pipeline stage that produced the diagnostic.
func (d Diagnostic) Stage() Stage {
	return d.Code.Stage()
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s %s %s: %s", d.Severity, d.Code.ID(), d.Location, d.Message)
	if d.Platform != "" {
		s += " [" + d.Platform + "]"
	}
	return s
}

package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"bindforge/internal/diag"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message> [<platform>]
// затем Notes с отступом, если ShowNotes. Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		var b strings.Builder
		b.WriteString(p.location.Sprint(formatLocation(d.Location, opts.PathMode, opts.BaseDir)))
		b.WriteString(": ")
		b.WriteString(p.severity(d.Severity).Sprintf("%s %s", d.Severity, d.Code.ID()))
		b.WriteString(": ")
		b.WriteString(truncate(flatten(d.Message), opts.Width))
		if d.Platform != "" {
			b.WriteString(" ")
			b.WriteString(p.platform.Sprintf("[%s]", d.Platform))
		}
		b.WriteByte('\n')
		if opts.ShowNotes {
			for _, n := range d.Notes {
				writeNote(&b, p, n, opts)
			}
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeNote(b *strings.Builder, p palette, n diag.Note, opts PrettyOpts) {
	lines := strings.Split(strings.TrimRight(n.Msg, "\n"), "\n")
	b.WriteString("  ")
	b.WriteString(p.note.Sprint("note"))
	if !n.Location.IsZero() {
		fmt.Fprintf(b, " (%s)", formatLocation(n.Location, opts.PathMode, opts.BaseDir))
	}
	b.WriteString(": ")
	b.WriteString(lines[0])
	b.WriteByte('\n')
	for _, l := range lines[1:] {
		b.WriteString("    ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
}

type palette struct {
	enabled  bool
	location *color.Color
	platform *color.Color
	note     *color.Color
	info     *color.Color
	warning  *color.Color
	err      *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		enabled:  enabled,
		location: color.New(color.Bold),
		platform: color.New(color.FgCyan),
		note:     color.New(color.FgBlue, color.Bold),
		info:     color.New(color.FgGreen, color.Bold),
		warning:  color.New(color.FgYellow, color.Bold),
		err:      color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.location, p.platform, p.note, p.info, p.warning, p.err} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevInfo:
		return p.info
	case diag.SevWarning:
		return p.warning
	}
	return p.err
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

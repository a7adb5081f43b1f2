package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bindforge/internal/diag"
)

// RunSummary is what the summary box reports about a finished run.
type RunSummary struct {
	Platforms []string
	Bindings  int
	Files     []string // written documents
	Failed    bool
}

// Summary renders a boxed run summary with per-severity counts.
func Summary(w io.Writer, bag *diag.Bag, s RunSummary, useColor bool) error {
	title := "bindforge: ok"
	if s.Failed {
		title = "bindforge: failed"
	}
	lines := []string{
		fmt.Sprintf("platforms  %s", strings.Join(s.Platforms, ", ")),
		fmt.Sprintf("bindings   %d", s.Bindings),
	}
	if len(s.Files) > 0 {
		lines = append(lines, fmt.Sprintf("wrote      %s", strings.Join(s.Files, ", ")))
	}
	lines = append(lines, fmt.Sprintf("diagnostics %d errors, %d warnings, %d info",
		bag.Count(diag.SevError)+bag.Count(diag.SevPanic), bag.Count(diag.SevWarning), bag.Count(diag.SevInfo)))

	titleStyle := lipgloss.NewStyle().Bold(true)
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if useColor {
		accent := lipgloss.Color("2")
		if s.Failed {
			accent = lipgloss.Color("1")
		}
		titleStyle = titleStyle.Foreground(accent)
		box = box.BorderForeground(accent)
	}
	body := titleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	_, err := io.WriteString(w, box.Render(body)+"\n")
	return err
}

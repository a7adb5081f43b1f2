package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"bindforge/internal/layout"
)

// LayoutTable prints a record layout as an aligned table, one row per field;
// anonymous members are expanded below their row with deeper indentation.
// Column widths are measured in terminal cells so wide field names line up.
func LayoutTable(w io.Writer, platform string, info *layout.Info) error {
	kind := "struct"
	if info.Union {
		kind = "union"
	}
	header := fmt.Sprintf("%s %s  size=%d align=%d", kind, info.Name, info.Size, info.Align)
	if platform != "" {
		header += "  [" + platform + "]"
	}

	rows := [][]string{{"field", "offset", "size", "align", "pad", "bits"}}
	collectRows(&rows, info, 0)
	if info.TrailingPadding > 0 {
		rows = append(rows, []string{"<tail>", strconv.Itoa(info.Size - info.TrailingPadding), "", "", strconv.Itoa(info.TrailingPadding), ""})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString("  ")
		for i, cell := range row {
			if i == 0 {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			} else {
				b.WriteString("  ")
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
			}
		}
		b.WriteString("\n")
	}
	// без хвостовых пробелов в пустых колонках
	out := strings.Join(trimRight(strings.Split(b.String(), "\n")), "\n")
	_, err := io.WriteString(w, out)
	return err
}

func collectRows(rows *[][]string, info *layout.Info, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range info.Fields {
		name := f.Name
		if name == "" {
			name = "<anonymous>"
		}
		bits := ""
		if f.Bitfield {
			bits = fmt.Sprintf("%d:%d", f.BitOffset, f.BitWidth)
		}
		*rows = append(*rows, []string{
			indent + name,
			strconv.Itoa(f.Offset),
			strconv.Itoa(f.Size),
			strconv.Itoa(f.Align),
			strconv.Itoa(f.Padding),
			bits,
		})
		if f.Nested != nil {
			collectRows(rows, f.Nested, depth+1)
		}
	}
}

func trimRight(lines []string) []string {
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}

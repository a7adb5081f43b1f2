package names

import (
	"strings"

	"bindforge/internal/cast"
)

// PseudoEnum groups integer macros that share a naming convention. It is
// documentation only: every member is still emitted as its own constant.
type PseudoEnum struct {
	Name    string
	Prefix  string   // common prefix including the trailing underscore
	Members []string // macro names in declaration order
}

// macroPrefix returns the name up to and including its last underscore.
func macroPrefix(name string) string {
	i := strings.LastIndexByte(name, '_')
	if i <= 0 {
		return ""
	}
	return name[:i+1]
}

// GroupPseudoEnums scans macros in order and groups runs of consecutive
// integer macros with the same prefix. Runs shorter than two are not groups.
func GroupPseudoEnums(macros []*cast.Macro) []PseudoEnum {
	var out []PseudoEnum
	var run []*cast.Macro
	prefix := ""
	flush := func() {
		if len(run) >= 2 && prefix != "" {
			g := PseudoEnum{
				Name:   Sanitize(strings.TrimRight(prefix, "_")),
				Prefix: prefix,
			}
			for _, m := range run {
				g.Members = append(g.Members, m.Name)
			}
			out = append(out, g)
		}
		run = run[:0]
		prefix = ""
	}
	for _, m := range macros {
		if m.ValueKind != cast.MacroInt {
			flush()
			continue
		}
		p := macroPrefix(m.Name)
		if p == "" || p != prefix {
			flush()
			prefix = p
		}
		run = append(run, m)
	}
	flush()
	return out
}

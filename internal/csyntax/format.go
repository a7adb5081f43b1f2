package csyntax

import (
	"strings"
)

// IndentUnit is one level of indentation in formatted output.
const IndentUnit = "    "

// Format normalizes C# source: LF line endings, indentation by brace depth,
// no trailing whitespace, at most one blank line in a row, no blank line
// right after an opening or before a closing brace, and exactly one final
// newline. Lines continuing a multi-line comment or verbatim string are not
// re-indented. Input that does not tokenize is only normalized line by line.
// Format is idempotent.
func Format(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	lines := strings.Split(src, "\n")

	toks, err := Tokenize(src)
	if err != nil {
		return finish(trimLines(lines))
	}

	type lineInfo struct {
		depth     int  // brace depth before the line's first token
		closes    bool // first token is a closing brace
		verbatim  bool // line continues a multi-line token
		directive bool
	}
	info := make([]lineInfo, len(lines)+1)
	seen := make([]bool, len(lines)+1)
	depth := 0
	for _, t := range toks {
		if t.Kind == EOF {
			break
		}
		if t.Line < len(info) && !seen[t.Line] {
			seen[t.Line] = true
			info[t.Line] = lineInfo{depth: depth, closes: t.Is("}"), directive: t.Kind == Directive}
		}
		for l := t.Line + 1; l <= t.EndLine && l < len(info); l++ {
			seen[l] = true
			info[l] = lineInfo{verbatim: true}
		}
		if t.Kind == Punct {
			switch t.Text {
			case "{":
				depth++
			case "}":
				depth = max(depth-1, 0)
			}
		}
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		li := info[i+1]
		if li.verbatim {
			out = append(out, strings.TrimRight(line, " \t"))
			continue
		}
		text := strings.TrimSpace(line)
		if text == "" {
			out = append(out, "")
			continue
		}
		level := li.depth
		if li.closes {
			level = max(level-1, 0)
		}
		if li.directive {
			level = 0
		}
		out = append(out, strings.Repeat(IndentUnit, level)+text)
	}
	return finish(out)
}

func trimLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, " \t")
	}
	return out
}

// finish collapses blank runs and fixes the blank lines around braces.
func finish(lines []string) string {
	var b strings.Builder
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			if len(kept) == 0 || kept[len(kept)-1] == "" || strings.HasSuffix(kept[len(kept)-1], "{") {
				continue
			}
		}
		if strings.HasPrefix(strings.TrimSpace(l), "}") {
			for len(kept) > 0 && kept[len(kept)-1] == "" {
				kept = kept[:len(kept)-1]
			}
		}
		kept = append(kept, l)
	}
	for len(kept) > 0 && kept[len(kept)-1] == "" {
		kept = kept[:len(kept)-1]
	}
	for _, l := range kept {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

package diagfmt

import (
	"path/filepath"
	"strings"

	"bindforge/internal/diag"
)

func formatPath(path string, mode PathMode, base string) string {
	if path == "" {
		return path
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if base == "" {
			return path
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || (mode == PathModeAuto && strings.HasPrefix(rel, "..")) {
			return path
		}
		return filepath.ToSlash(rel)
	}
	return path
}

// formatLocation renders loc the way diag.Location.String does, with the path
// rewritten according to mode.
func formatLocation(loc diag.Location, mode PathMode, base string) string {
	if loc.IsZero() {
		return "<unknown>"
	}
	loc.File = formatPath(loc.File, mode, base)
	return loc.String()
}

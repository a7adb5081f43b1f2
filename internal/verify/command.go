package verify

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bindforge/internal/diag"
	"bindforge/internal/emit"
)

// ProjectFileName is written next to the documents when the work directory
// has no project of its own, so "dotnet build" has something to build.
const ProjectFileName = "Bindings.Verify.csproj"

const projectTemplate = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <AllowUnsafeBlocks>true</AllowUnsafeBlocks>
    <Nullable>enable</Nullable>
    <OutputType>Library</OutputType>
  </PropertyGroup>
</Project>
`

// Command verifies by running an external compiler, typically
// ["dotnet", "build"], in a directory holding the documents.
type Command struct {
	Args []string
	// Dir receives the documents; a temporary directory is used when empty.
	Dir string
}

var (
	// file(line,col): error CS0106: message [project]
	locatedLine = regexp.MustCompile(`^\s*(.+?)\((\d+),(\d+)(?:,\d+,\d+)?\)\s*:\s+(error|warning)\s+([A-Z]+\d+)\s*:\s+(.*?)(?:\s+\[[^\]]*\])?\s*$`)
	// CSC : error CS5001: message
	globalLine = regexp.MustCompile(`^\s*(.+?)\s+:\s+(error|warning)\s+([A-Z]+\d+)\s*:\s+(.*?)(?:\s+\[[^\]]*\])?\s*$`)
)

func (c Command) Verify(ctx context.Context, docs []emit.Document) ([]Finding, error) {
	if len(c.Args) == 0 {
		return nil, fmt.Errorf("%w: no command configured", ErrUnavailable)
	}
	bin, err := exec.LookPath(c.Args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	dir := c.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "bindforge-verify-")
		if err != nil {
			return nil, err
		}
		defer func() {
			if rmErr := os.RemoveAll(tmp); rmErr != nil {
				Logger().Warn("failed to remove verify directory", zap.String("dir", tmp), zap.Error(rmErr))
			}
		}()
		dir = tmp
	}
	if err := writeDocuments(dir, docs); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, c.Args[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	Logger().Debug("running compiler", zap.Strings("args", c.Args), zap.String("dir", dir))
	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	findings := ParseOutput(out.String(), dir)
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		if !hasErrors(findings) {
			findings = append(findings, Finding{
				Severity: diag.SevError,
				Message:  fmt.Sprintf("%s exited with status %d: %s", c.Args[0], exitErr.ExitCode(), lastLine(out.String())),
			})
		}
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, runErr)
	}
	return findings, nil
}

func writeDocuments(dir string, docs []emit.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, d := range docs {
		if err := os.WriteFile(filepath.Join(dir, d.FileName), []byte(d.Code), 0o644); err != nil {
			return err
		}
	}
	projects, err := filepath.Glob(filepath.Join(dir, "*.csproj"))
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(projectTemplate), 0o644)
}

// ParseOutput extracts compiler messages from build output. Paths under dir
// are made relative to it. MSBuild repeats every message in its summary;
// duplicates are dropped.
func ParseOutput(output, dir string) []Finding {
	var findings []Finding
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		var f Finding
		if m := locatedLine.FindStringSubmatch(line); m != nil {
			ln, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			f = Finding{
				Severity: severity(m[4]),
				Message:  m[5] + ": " + m[6],
				Location: diag.Location{File: relative(dir, m[1]), Line: ln, Column: col},
			}
		} else if m := globalLine.FindStringSubmatch(line); m != nil {
			f = Finding{
				Severity: severity(m[2]),
				Message:  m[3] + ": " + m[4],
			}
			if origin := strings.TrimSpace(m[1]); !strings.EqualFold(origin, "CSC") {
				f.Location = diag.Location{File: relative(dir, origin)}
			}
		} else {
			continue
		}
		key := f.Location.String() + "\x00" + f.Message
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		findings = append(findings, f)
	}
	return findings
}

// severity maps the compiler's severity word; anything unknown counts as
// an error.
func severity(word string) diag.Severity {
	if s, ok := diag.ParseSeverity(word); ok {
		return s
	}
	return diag.SevError
}

func relative(dir, path string) string {
	if dir == "" || !filepath.IsAbs(path) {
		return path
	}
	if rel, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func hasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity.Fatal() {
			return true
		}
	}
	return false
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

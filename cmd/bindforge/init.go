package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bindforge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Create a bindforge.toml project file",
	Long: `Initialize a bindforge project by writing a bindforge.toml with one
platform entry. If [path|name] is omitted, the current directory is used.
A non-existing directory is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("library", "", "native library name (default: directory name)")
	initCmd.Flags().String("triple", "x86_64-unknown-linux-gnu", "target triple of the first platform")
}

// runInit writes a starter bindforge.toml into the target directory and
// refuses to overwrite an existing one.
func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	library, err := cmd.Flags().GetString("library")
	if err != nil {
		return fmt.Errorf("failed to get library flag: %w", err)
	}
	if library == "" {
		library = libraryFromDir(target)
	}
	triple, err := cmd.Flags().GetString("triple")
	if err != nil {
		return fmt.Errorf("failed to get triple flag: %w", err)
	}

	path := filepath.Join(target, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized: %s exists", path)
	}
	if err := os.WriteFile(path, []byte(buildDefaultConfig(library, triple)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.FileName, err)
	}
	// сразу проверяем, что шаблон читается тем же загрузчиком
	if _, err := config.Load(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized bindforge project in %s\n  - %s\n", target, config.FileName)
	return nil
}

func libraryFromDir(dir string) string {
	name := strings.TrimSpace(filepath.Base(dir))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "native"
	}
	return name
}

// buildDefaultConfig returns the starter project file. The AST path is where
// the header front end is expected to write the document for triple.
func buildDefaultConfig(library, triple string) string {
	return fmt.Sprintf(`# bindforge project file
[bindings]
namespace = "Bindings"
class = "Native"
library = %q
function_pointers = true
nullables = true
file_scoped_namespace = true
generate_runtime = true

[output]
dir = "generated"

[run]
jobs = 0
cache = true

# one entry per target; the AST documents come from the header front end
[[platform]]
triple = %q
ast = "ast/%s.json"
`, library, triple, triple)
}

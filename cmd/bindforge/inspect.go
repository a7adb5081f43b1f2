package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bindforge/internal/cast"
	"bindforge/internal/diag"
	"bindforge/internal/diagfmt"
	"bindforge/internal/layout"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <ast.json> [record...]",
	Short: "Print the computed layout of the records in one platform AST",
	Long: `Inspect loads a single platform AST document, lays out its records and
prints a field table for each one. With record names only those are shown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	ast, err := cast.LoadFile(path)
	if err != nil {
		return err
	}

	bag := diag.NewBag()
	table := layout.CalculateAll(ast, diag.BagReporter{Bag: bag})

	names := args[1:]
	if len(names) == 0 {
		names = table.Names()
	}
	out := cmd.OutOrStdout()
	for i, name := range names {
		info, ok := table.Get(name)
		if !ok {
			if _, failed := table.Failed(name); failed {
				continue // уже в диагностике
			}
			return fmt.Errorf("%s: no record named %q", path, name)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := diagfmt.LayoutTable(out, ast.Platform.Triple, &info); err != nil {
			return err
		}
	}

	if bag.Len() == 0 {
		return nil
	}
	colored, err := useColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	bag.Sort()
	if err := diagfmt.Pretty(os.Stderr, bag, diagfmt.PrettyOpts{
		Color:    colored,
		PathMode: diagfmt.PathModeAuto,
		BaseDir:  filepath.Dir(path),
		Width:    terminalWidth(os.Stderr),
	}); err != nil {
		return err
	}
	if bag.HasErrors() {
		return errRunFailed
	}
	return nil
}

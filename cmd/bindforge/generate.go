package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bindforge/internal/config"
	"bindforge/internal/diag"
	"bindforge/internal/diagfmt"
	"bindforge/internal/driver"
	"bindforge/internal/emit"
)

var generateCmd = &cobra.Command{
	Use:   "generate [flags]",
	Short: "Generate C# bindings for the platforms listed in bindforge.toml",
	Long: `Generate loads bindforge.toml (searched upward from the working directory,
or given by --config), runs the binding pipeline over every listed platform
and writes the C# documents to the output directory.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	registerGenerateFlags(generateCmd)
}

func registerGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to bindforge.toml (default: search upward)")
	cmd.Flags().StringP("out", "o", "", "output directory (overrides [output].dir)")
	cmd.Flags().Int("jobs", -1, "max parallel platform loads (0=auto, default from config)")
	cmd.Flags().Bool("no-cache", false, "disable the on-disk AST cache")
	cmd.Flags().Bool("no-verify", false, "skip compiling the generated code")
	cmd.Flags().Bool("dry-run", false, "run the pipeline without writing files")
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

// runGenerate executes the "generate" command. It returns errRunFailed when
// the run recorded errors, after printing the diagnostics.
func runGenerate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	format, err := flags.GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or short)", format)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := parseUIMode(uiFlag)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}

	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		return err
	}
	if err = applyGenerateFlags(cmd, &cfg); err != nil {
		return err
	}

	opts, err := driver.OptionsFromConfig(cfg)
	if err != nil {
		// без кэша работаем дальше: он только ускоряет повторные запуски
		fmt.Fprintf(os.Stderr, "warning: AST cache disabled: %v\n", err)
		opts.Cache = nil
	}
	opts.EnableTimings = showTimings

	var res *driver.Result
	if mode.progressView(quiet, format != "pretty") {
		res, err = runGenerateWithUI(cmd.Context(), "bindforge", opts)
	} else {
		res, err = driver.Generate(cmd.Context(), opts)
	}
	if res == nil {
		return err
	}

	runErr := err
	var written []string
	if !dryRun && runErr == nil && len(res.Documents) > 0 {
		written, err = writeDocuments(cfg.Output.Dir, res.Documents)
		if err != nil {
			return err
		}
	}

	if err = printDiagnostics(cmd, res, format, filepath.Dir(cfg.Path)); err != nil {
		return err
	}
	if format == "pretty" && !quiet {
		colored, cerr := useColor(cmd, os.Stdout)
		if cerr != nil {
			return cerr
		}
		platforms := make([]string, 0, len(res.ASTs))
		for _, ast := range res.ASTs {
			platforms = append(platforms, ast.Platform.Triple)
		}
		summary := diagfmt.RunSummary{
			Platforms: platforms,
			Bindings:  len(res.Nodes),
			Files:     written,
			Failed:    res.Failed(),
		}
		if serr := diagfmt.Summary(os.Stdout, res.Bag, summary, colored); serr != nil {
			return serr
		}
	}
	if showTimings && res.Timings != nil && format == "pretty" {
		if _, terr := res.Timings.WriteTo(os.Stderr); terr != nil {
			return terr
		}
	}
	if res.Failed() {
		return errRunFailed
	}
	// ошибка без диагностики (например, отмена контекста)
	return runErr
}

// loadProjectConfig loads an explicit config path or the nearest
// bindforge.toml. Running without one is an error: the platform list has
// no other source.
func loadProjectConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	cfg, ok, err := config.LoadNearest(wd)
	if err != nil {
		return config.Config{}, err
	}
	if !ok {
		return config.Config{}, fmt.Errorf("%s not found in %s or any parent directory (run \"bindforge init\")", config.FileName, wd)
	}
	return cfg, nil
}

// applyGenerateFlags lets explicitly set flags override the config file.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("out") {
		out, err := flags.GetString("out")
		if err != nil {
			return fmt.Errorf("failed to get out flag: %w", err)
		}
		cfg.Output.Dir = out
	}
	if flags.Changed("jobs") {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		cfg.Run.Jobs = jobs
	}
	if noCache, err := flags.GetBool("no-cache"); err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	} else if noCache {
		cfg.Run.Cache = false
	}
	if noVerify, err := flags.GetBool("no-verify"); err != nil {
		return fmt.Errorf("failed to get no-verify flag: %w", err)
	} else if noVerify {
		cfg.Verify.Command = nil
	}
	return cfg.Validate()
}

func printDiagnostics(cmd *cobra.Command, res *driver.Result, format, baseDir string) error {
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case "short":
		// одна строка на диагностику, стабильный порядок
		if out := diag.FormatGoldenDiagnostics(res.Bag.Items(), withNotes); out != "" {
			_, err = fmt.Fprintln(os.Stdout, out)
		}
		return err
	case "json":
		return diagfmt.JSON(os.Stdout, res.Bag, diagfmt.JSONOpts{
			PathMode:     pathMode,
			BaseDir:      baseDir,
			IncludeNotes: withNotes,
		})
	}
	colored, err := useColor(cmd, os.Stdout)
	if err != nil {
		return err
	}
	return diagfmt.Pretty(os.Stdout, res.Bag, diagfmt.PrettyOpts{
		Color:     colored,
		PathMode:  pathMode,
		BaseDir:   baseDir,
		ShowNotes: withNotes,
		Width:     terminalWidth(os.Stdout),
	})
}

// writeDocuments writes every document into dir and returns the written
// file names in document order.
func writeDocuments(dir string, docs []emit.Document) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}
	written := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.FileName == "" || filepath.Base(doc.FileName) != doc.FileName {
			return written, fmt.Errorf("refusing to write document with file name %q", doc.FileName)
		}
		path := filepath.Join(dir, doc.FileName)
		if err := os.WriteFile(path, []byte(doc.Code), 0o644); err != nil {
			return written, fmt.Errorf("failed to write document: %w", err)
		}
		written = append(written, doc.FileName)
	}
	return written, nil
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"bindforge/internal/driver"
	"bindforge/internal/version"
)

// errRunFailed is returned when a run finished but recorded errors; the
// diagnostics are already printed, so main only sets the exit status.
var errRunFailed = errors.New("run failed")

var rootCmd = &cobra.Command{
	Use:   "bindforge",
	Short: "Generate C# P/Invoke bindings from C header ASTs",
	Long: `bindforge reads one C header AST document per target platform, lays out
every record, unifies the platforms and writes C# interop source.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// main registers the subcommands and persistent flags and executes the root
// command. Any error exits with status 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.String()

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Bool("verbose", false, "write debug logs to stderr")

	err := rootCmd.Execute()
	if logger := driver.Logger(); logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setupLogging installs a development logger with --verbose and a
// production logger that only reports warnings otherwise.
func setupLogging(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	var logger *zap.Logger
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.Encoding = "console"
		cfg.DisableStacktrace = true
		logger, err = cfg.Build()
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	driver.SetLogger(logger.Named("bindforge"))
	return nil
}

// useColor resolves the --color flag against the terminal state of f.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of f, or 0 when it is not a terminal.
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

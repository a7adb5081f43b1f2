package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bindforge/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the bindforge build fingerprint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		switch strings.ToLower(format) {
		case "json":
			return renderVersionJSON(cmd.OutOrStdout())
		case "pretty":
			colored, err := useColor(cmd, os.Stdout)
			if err != nil {
				return err
			}
			renderVersionPretty(cmd.OutOrStdout(), colored)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func renderVersionPretty(out io.Writer, colored bool) {
	v := version.String()
	if colored {
		v = version.Colored()
	}
	fmt.Fprintf(out, "bindforge %s\n", v)
	if c := strings.TrimSpace(version.GitCommit); c != "" {
		fmt.Fprintf(out, "commit: %s\n", c)
	}
	if d := strings.TrimSpace(version.BuildDate); d != "" {
		fmt.Fprintf(out, "built:  %s\n", d)
	}
}

func renderVersionJSON(out io.Writer) error {
	payload := versionPayload{
		Tool:      "bindforge",
		Version:   version.String(),
		GitCommit: strings.TrimSpace(version.GitCommit),
		BuildDate: strings.TrimSpace(version.BuildDate),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

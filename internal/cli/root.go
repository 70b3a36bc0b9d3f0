package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "curlwrap",
	Short: "Stateful HTTP request builder",
	Long: `curlwrap - Stateful HTTP request builder

Sends HTTP requests through a builder that keeps options, headers, cookies
and request parameters between transfers, with a persistent cookie file,
browser-like defaults and a snapshot of transfer metadata.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity (repeat for more: -v info, -vv debug)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "curlwrap %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// newLogger returns a text logger on w whose level follows the -v count.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

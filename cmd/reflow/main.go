package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦═╗┌─┐┌─┐┬  ┌─┐┬ ┬
  ╠╦╝├┤ ├┤ │  │ ││││
  ╩╚═└─┘└  ┴─┘└─┘└┴┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "reflow",
		Short: "Fine-grained reactive signals for Go",
		Long: `Reflow is a fine-grained reactive runtime for Go.

Signals hold values, effects observe them, memos derive from them,
and the live server broadcasts them over WebSockets:

  • Automatic dependency tracking
  • Synchronous, glitch-free propagation
  • Batched writes with deduplicated effect runs
  • Named broadcast channels over a single socket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var coded *errors.Error
		if stderrors.As(err, &coded) {
			fmt.Fprintln(os.Stderr, coded.Format())
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

// printBanner prints the Reflow ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

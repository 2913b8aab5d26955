// Kituo — Telegram admin console for bank call-center service requests.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kituo",
	Short: "Kituo — Telegram admin console for bank call-center service requests.",
	Long: `Kituo is a Telegram bot for bank call-center administrators.
It manages client service requests (card blocks, app blocks, card reissues)
through an inline-keyboard workflow, with a full audit trail of completions.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, webhookCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

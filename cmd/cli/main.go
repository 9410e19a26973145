package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerbot-cli",
		Short:         "LedgerBot CLI tool",
		Long:          `A command line interface for chatting with and administering the LedgerBot API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the LedgerBot API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 200*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("LEDGERBOT_TOKEN"), "Bearer token for authenticated servers")

	rootCmd.AddCommand(chatCmd(), balanceCmd(), historyCmd(), migrateCmd(), tokenCmd())
	return rootCmd
}

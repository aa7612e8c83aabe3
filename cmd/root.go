/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linkshare",
	Short: "Upload, share and manage files on a link-sharing backend",
	Long: `linkshare is a client for a file-sharing backend. Sign in, upload files,
turn them into public share links, and manage every user's files as an admin.

	linkshare login -u alice
	linkshare files upload ./report.pdf
	linkshare files share 3
	linkshare serve
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the backend (default http://localhost:8080)")
	rootCmd.PersistentFlags().String("token-file", "", "where the session token is kept")
	rootCmd.PersistentFlags().String("env", "", "environment name: development or production")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

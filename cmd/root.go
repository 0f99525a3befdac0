// Package cmd defines the notifyd command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rentaro/notifyd/internal/build"
	"github.com/rentaro/notifyd/internal/config"
)

// Execute loads the configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "notifyd",
		Short: "Rentaro notification dispatch service",
		Long: "notifyd delivers Rentaro marketplace notifications: it queues jobs,\n" +
			"polls for due work and fans each job out to email, in-app, chat and\n" +
			"SMS channels with provider fallback.",
	}

	rootCmd.AddCommand(NewServeCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the notifyd version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(build.String())
		},
	}
}

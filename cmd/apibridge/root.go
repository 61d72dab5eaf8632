package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "apibridge",
	Short: "ApiBridgePro - reverse-proxy gateway for third-party APIs",
	Long: `ApiBridgePro is a reverse-proxy API gateway that fronts third-party HTTP
APIs behind stable connector endpoints.

Each connector routes to one or more upstream providers with health-aware
selection, circuit breaking, and automatic failover. The gateway adds rate
limiting, response caching, monthly budget enforcement, credential
injection, JMESPath response transforms, and schema drift detection on top
of the raw upstream APIs.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}

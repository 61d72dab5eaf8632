package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
	"github.com/lukaslondono77/ApiBridgePro/pkg/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load, validate, and compile a configuration file without starting the
gateway. Exits non-zero if the configuration is invalid.

Examples:
  # Validate the default config
  apibridge validate

  # Validate a specific file
  apibridge validate --config /etc/apibridge/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		policies, err := policy.Compile(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Configuration valid: %d connector(s)\n", len(policies))
		for name, conn := range policies {
			fmt.Printf("  %s: %d provider(s)\n", name, len(conn.Providers))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

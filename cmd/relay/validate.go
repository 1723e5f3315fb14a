package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"mercator-hq/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and print the effective settings",
	Long: `Load the configuration the same way "relay run" does (config file,
env file, environment variables), validate it and print the result as YAML.

Examples:
  # Validate the default config.yaml plus environment
  relay validate

  # Validate a specific file
  relay validate --config /etc/relay/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateConfig(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(w io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "# configuration valid")
	_, err = w.Write(data)
	return err
}

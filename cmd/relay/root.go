package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - gateway for an AI inference service",
	Long: `Relay is an HTTP gateway in front of an AI inference service.

Client applications POST {user_id, session_id, prompt} to /api/gemini.
Relay validates the payload, forwards it once to the inference service's
/generate_ai_response endpoint and relays the reply, translating upstream
timeouts and connection failures into JSON errors.

Configuration comes from an optional YAML file, a .env file and the
environment (PORT, FASTAPI_URL, AI_REQUEST_TIMEOUT, RELAY_*).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// loadConfig loads the env file, then the configuration file, then the
// environment overrides.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, cli.NewConfigError("env_file", err.Error())
		}
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

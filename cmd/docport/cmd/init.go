/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with a generated API key",
	Long: `Write a default configuration file with a freshly generated API key.

Examples:
  docport init
  docport init --config ./docport.yaml --data-dir ./data --force`,
	Args: cobra.NoArgs,
	// The config may not exist yet, so skip the root loader.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		cfg, created, err := initializeConfig(configPath, dataDir, force)
		if err != nil {
			return err
		}
		if !created {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cmd.Printf("Configuration written to %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		cmd.Printf("\nStart the server with:\n  docport serve --config %s\n", configPath)
		return nil
	},
}

// initializeConfig bootstraps a config at path unless one exists and force
// is false. created reports whether a file was written.
func initializeConfig(path, dataDir string, force bool) (cfg *config.Config, created bool, err error) {
	if config.ConfigExists(path) && !force {
		cfg, err = config.LoadConfig(path)
		return cfg, false, err
	}
	cfg, err = config.BootstrapConfig(path, dataDir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to initialize config: %w", err)
	}
	return cfg, true, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/config"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap configuration if needed and start the server",
	Long: `Create a configuration file with a generated API key when none exists,
then start the REST API server. This is the quickest way to get docport running.

Examples:
  docport up
  docport up --data-dir ./mydata --port 9000 --print-key`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		dataDir, _ := cmd.Flags().GetString("data-dir")

		cfg, created, err := initializeConfig(configPath, dataDir, false)
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("First run detected. Configuration created at %s\n", configPath)
			if printKey, _ := cmd.Flags().GetBool("print-key"); printKey {
				cmd.Printf("API key: %s\n", cfg.Server.APIKey)
			}
		}
		if err := cmd.Flags().Set("config", configPath); err != nil {
			return err
		}
		return rootCmd.PersistentPreRunE(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServerFlags(cmd, appConfig)
		cmd.Printf("Starting docport server on %s\n", appConfig.Server.Addr())
		cmd.Printf("Data directory: %s\n", appConfig.DataDir)
		return runServer(cmd.Context(), appConfig)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	addServerFlags(upCmd)
	upCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

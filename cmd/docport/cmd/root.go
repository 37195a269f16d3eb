/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/config"
	"github.com/ssargent/docport/pkg/di"
	"github.com/ssargent/docport/pkg/logging"
	"github.com/ssargent/docport/pkg/storage"
)

var (
	container *di.Container
	appConfig *config.Config
)

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docport",
	Short: "docport - document collection export and import",
	Long: `docport keeps named document collections in a local store and moves
them in and out as zip archives of json, csv or bson files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			container = di.NewContainer()
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appConfig = cfg
		logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
		container.Configure(cfg.Transfer.ArchiveConfig(), logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (default "+config.GetDefaultConfigPath()+")")
	flags.StringP("data-dir", "d", "", "Data directory for the store")
	flags.String("env-file", ".env", "Environment file loaded before the config")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
}

// loadConfig layers defaults, the config file, the environment and flags,
// in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	configPath, _ := flags.GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if explicit || config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withStore opens the collection store for the duration of fn.
func withStore(fn func(*storage.Store) error) error {
	if err := os.MkdirAll(appConfig.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	s, err := storage.Open(appConfig.DataDir, nil)
	if err != nil {
		return err
	}
	runErr := fn(s)
	if err := s.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close store: %w", err)
	}
	return runErr
}

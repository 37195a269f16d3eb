/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/docport/pkg/api"
	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/config"
	"github.com/ssargent/docport/pkg/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the docport REST API server.

The API exposes collection listing, export as a zip download and import of
uploaded archives or single files. Requests must carry the configured key in
the X-API-Key header.

Examples:
  docport serve --api-key=mysecretkey --port=8080
  DOCPORT_API_KEY=mysecretkey docport serve --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServerFlags(cmd, appConfig)
		if appConfig.Server.APIKey == "" {
			container.Logger().Warn("no API key configured, the API is unauthenticated")
		}
		return runServer(cmd.Context(), appConfig)
	},
}

func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("bind") {
		cfg.Server.Bind, _ = flags.GetString("bind")
	}
	if flags.Changed("api-key") {
		cfg.Server.APIKey, _ = flags.GetString("api-key")
	}
}

// runServer serves the API until an interrupt or ctx is done.
func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withStore(func(s *storage.Store) error {
		server := container.GetServerFactory().CreateServer(
			s,
			container.Exporter(),
			container.FileImporter(),
			api.ServerConfig{
				Addr:           cfg.Server.Addr(),
				APIKey:         cfg.Server.APIKey,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				DefaultFormat:  codec.Format(cfg.Transfer.DefaultFormat),
			},
			container.Logger(),
		)
		return server.ListenAndServe(ctx)
	})
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	cmd.Flags().String("api-key", "", "API key required in the X-API-Key header")
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServerFlags(serveCmd)
}

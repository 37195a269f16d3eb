// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/ssargent/docport/pkg/api" //nolint:depguard
	"github.com/ssargent/docport/pkg/archive"
	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/guard"
	"github.com/ssargent/docport/pkg/logging"
)

// Container holds all the dependencies for the application
type Container struct {
	registry      *codec.Registry
	guard         *guard.Guard
	logger        *slog.Logger
	archiveConfig archive.Config
	serverFactory api.ServerFactory
}

// NewContainer creates a container with the default codecs, the default
// name guard, a discarding logger and default transfer settings.
func NewContainer() *Container {
	return &Container{
		registry:      codec.DefaultRegistry(),
		guard:         guard.Default(),
		logger:        logging.Discard(),
		archiveConfig: archive.DefaultConfig(),
		serverFactory: api.NewServerFactory(nil),
	}
}

// Configure replaces the logger and transfer settings, typically once the
// CLI has loaded its configuration.
func (c *Container) Configure(cfg archive.Config, logger *slog.Logger) {
	c.archiveConfig = cfg
	if logger != nil {
		c.logger = logger
	}
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Registry returns the codec registry
func (c *Container) Registry() *codec.Registry {
	return c.registry
}

// Guard returns the name guard
func (c *Container) Guard() *guard.Guard {
	return c.guard
}

// ArchiveConfig returns the transfer settings
func (c *Container) ArchiveConfig() archive.Config {
	return c.archiveConfig
}

// Exporter returns an exporter bound to the container's settings
func (c *Container) Exporter() *archive.Exporter {
	return archive.NewExporter(c.registry, c.logger, c.archiveConfig)
}

// Importer returns an archive importer bound to the container's settings
func (c *Container) Importer() *archive.Importer {
	return archive.NewImporter(c.registry, c.guard, c.logger, c.archiveConfig)
}

// FileImporter returns a single-file importer bound to the container's settings
func (c *Container) FileImporter() *archive.FileImporter {
	return archive.NewFileImporter(c.Importer())
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

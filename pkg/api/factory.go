// Package api provides factory implementations for dependency injection
package api

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct {
	registry *prometheus.Registry
}

// NewServerFactory creates a new server factory. Servers it creates register
// their metrics with reg, or with a private registry when reg is nil.
func NewServerFactory(reg *prometheus.Registry) ServerFactory {
	return &DefaultServerFactory{registry: reg}
}

// CreateServer creates a server
func (f *DefaultServerFactory) CreateServer(
	store CollectionStore,
	exporter Exporter,
	importer FileImporter,
	config ServerConfig,
	logger *slog.Logger,
) ServerStarter {
	return NewServer(store, exporter, importer, config, NewMetrics(f.registry), logger)
}

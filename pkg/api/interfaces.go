// Package api provides interfaces for dependency injection
package api

import (
	"context"
	"log/slog"
)

// ServerStarter defines the interface for running the API server
type ServerStarter interface {
	// ListenAndServe serves until ctx is done
	ListenAndServe(ctx context.Context) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServer wires a server from its collaborators
	CreateServer(store CollectionStore, exporter Exporter, importer FileImporter, config ServerConfig, logger *slog.Logger) ServerStarter
}

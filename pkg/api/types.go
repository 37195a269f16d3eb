package api

import (
	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
	"github.com/ssargent/docport/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ImportResult describes a completed import
type ImportResult struct {
	ImportID    string         `json:"import_id"`
	Filename    string         `json:"filename"`
	Replaced    bool           `json:"replaced"`
	Collections []storage.Info `json:"collections"`
	Documents   int            `json:"documents"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr           string
	APIKey         string
	MaxUploadBytes int64
	DefaultFormat  codec.Format
}

// CollectionStore is the subset of the storage layer the API needs.
type CollectionStore interface {
	InsertSet(set collection.Set, replace bool) ([]storage.Info, error)
	LoadSet(names ...string) (collection.Set, error)
	Collections() ([]storage.Info, error)
	Drop(name string) error
	Ping() error
}

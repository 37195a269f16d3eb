package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/ssargent/docport/pkg/archive"
	"github.com/ssargent/docport/pkg/codec"
	"github.com/ssargent/docport/pkg/collection"
	"github.com/ssargent/docport/pkg/logging"
	"github.com/ssargent/docport/pkg/storage"
)

const (
	uploadField      = "toimport"
	multipartMemory  = 8 << 20
	digestHeader     = "X-Content-Blake3"
	importIDHeader   = "X-Import-ID"
	metricsUpdateGap = 30 * time.Second
	zipLabel         = "zip"
)

// Exporter builds archives from collection sets.
type Exporter interface {
	Export(ctx context.Context, set collection.Set, format codec.Format) ([]byte, error)
}

// FileImporter turns an uploaded file into a collection set.
type FileImporter interface {
	ImportFile(ctx context.Context, path, filename string) (collection.Set, error)
}

// Server holds the API server state
type Server struct {
	store    CollectionStore
	exporter Exporter
	importer FileImporter
	config   ServerConfig
	metrics  *Metrics
	logger   *slog.Logger
}

// NewServer creates a new API server. A nil metrics gets a private registry
// and a nil logger discards output.
func NewServer(store CollectionStore, exporter Exporter, importer FileImporter, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if config.DefaultFormat == "" {
		config.DefaultFormat = codec.FormatJSON
	}
	return &Server{
		store:    store,
		exporter: exporter,
		importer: importer,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		s.metrics.RecordHealthCheck(false)
		sendError(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListCollections godoc
//
//	@Summary		List collections
//	@Description	List every stored collection with its document count
//	@Tags			collections
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Failure		500	{object}	APIResponse
//	@Router			/collections [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.Collections()
	if err != nil {
		sendFailure(w, err)
		return
	}
	if infos == nil {
		infos = []storage.Info{}
	}
	s.metrics.UpdateCollections(len(infos))
	sendSuccess(w, infos)
}

// handleDropCollection godoc
//
//	@Summary		Drop a collection
//	@Tags			collections
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Success		200		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/collections/{name} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDropCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Drop(name); err != nil {
		sendFailure(w, err)
		return
	}
	logging.FromContext(r.Context(), s.logger).Info("collection dropped", "collection", name)
	sendSuccess(w, map[string]string{"dropped": name})
}

// handleExport godoc
//
//	@Summary		Export collections
//	@Description	Bundle collections into a zip archive, one entry per collection
//	@Tags			transfer
//	@Produce		application/zip
//	@Param			format		query		string		false	"json, csv or bson (bson is CRC32-framed CBOR, not MongoDB BSON)"
//	@Param			collection	query		[]string	false	"Collections to export, all when omitted"
//	@Success		200			{file}		file
//	@Failure		400			{object}	APIResponse
//	@Failure		404			{object}	APIResponse
//	@Router			/export [get]
//	@Security		ApiKeyAuth
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logger := logging.FromContext(ctx, s.logger)

	format := s.config.DefaultFormat
	if v := r.URL.Query().Get("format"); v != "" {
		format = codec.Format(v)
	}

	data, docs, err := s.export(ctx, format, r.URL.Query()["collection"])
	s.metrics.RecordTransfer(directionExport, formatLabel(string(format)), docs, len(data), err, time.Since(start))
	if err != nil {
		logger.Warn("export failed", "format", format, "error", err)
		sendFailure(w, err)
		return
	}

	digest := blake3.Sum256(data)
	filename := fmt.Sprintf("docport-%s-%s.zip", format, start.UTC().Format("20060102T150405Z"))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(digestHeader, hex.EncodeToString(digest[:]))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("failed to write export", "error", err)
		return
	}
	logger.Info("export served", "format", format, "documents", docs, "bytes", len(data))
}

func (s *Server) export(ctx context.Context, format codec.Format, names []string) ([]byte, int, error) {
	if _, err := codec.ParseFormat(string(format)); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", archive.ErrUnsupportedFormat, err)
	}
	set, err := s.store.LoadSet(names...)
	if err != nil {
		return nil, 0, err
	}
	data, err := s.exporter.Export(ctx, set, format)
	if err != nil {
		return nil, 0, err
	}
	return data, set.Count(), nil
}

// handleImport godoc
//
//	@Summary		Import a file
//	@Description	Import a zip archive or a single json, csv or bson file. bson is CRC32-framed CBOR, not MongoDB BSON.
//	@Tags			transfer
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			toimport	formData	file	true	"Archive or collection file"
//	@Param			drop		formData	bool	false	"Replace existing collections"
//	@Success		200			{object}	APIResponse
//	@Failure		400			{object}	APIResponse
//	@Failure		422			{object}	APIResponse
//	@Router			/import [post]
//	@Security		ApiKeyAuth
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	importID := uuid.NewString()
	ctx := r.Context()
	logger := logging.FromContext(ctx, s.logger).With("import_id", importID)
	w.Header().Set(importIDHeader, importID)

	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}

	result, size, err := s.importUpload(ctx, r, logger)
	documents := 0
	format := ""
	if result != nil {
		documents = result.Documents
		format = formatLabel(extensionOf(result.Filename))
	}
	s.metrics.RecordTransfer(directionImport, format, documents, size, err, time.Since(start))
	if err != nil {
		logger.Warn("import failed", "error", err)
		if errors.Is(err, http.ErrMissingFile) {
			sendError(w, "No file sent to import", http.StatusBadRequest)
			return
		}
		sendFailure(w, err)
		return
	}

	result.ImportID = importID
	logger.Info("import complete",
		"file", result.Filename,
		"collections", len(result.Collections),
		"documents", result.Documents)
	sendSuccess(w, result)
}

func (s *Server) importUpload(ctx context.Context, r *http.Request, logger *slog.Logger) (*ImportResult, int, error) {
	if limit := s.config.MaxUploadBytes; limit > 0 && r.ContentLength > limit {
		return nil, 0, &http.MaxBytesError{Limit: limit}
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, 0, http.ErrMissingFile
		}
		return nil, 0, err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	path, size, err := spool(file)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = os.Remove(path) }()

	result := &ImportResult{Filename: header.Filename, Collections: []storage.Info{}}
	set, err := s.importer.ImportFile(ctx, path, header.Filename)
	if err != nil {
		return result, int(size), err
	}

	drop, _ := strconv.ParseBool(r.FormValue("drop"))
	result.Replaced = drop
	infos, err := s.store.InsertSet(set, drop)
	if err != nil {
		return result, int(size), fmt.Errorf("failed to store import: %w", err)
	}
	for _, info := range infos {
		docs := len(set[info.Name])
		logger.Debug("collection stored", "collection", info.Name, "documents", docs)
		result.Collections = append(result.Collections, storage.Info{Name: info.Name, Count: docs, Revision: info.Revision})
		result.Documents += docs
	}
	return result, int(size), nil
}

// spool copies an upload to a temp file and returns its path.
func spool(src io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp("", "docport-upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to buffer upload: %w", err)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to buffer upload: %w", err)
	}
	return tmp.Name(), n, nil
}

// formatLabel keeps the metrics format label within the registered formats
// plus "zip". Anything else a client sends is reported as "other".
func formatLabel(v string) string {
	if v == "" || v == zipLabel {
		return v
	}
	if f, err := codec.ParseFormat(v); err == nil {
		return string(f)
	}
	return "other"
}

func extensionOf(filename string) string {
	for i := len(filename) - 1; i >= 0 && filename[i] != '/'; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}
	return ""
}

// startMetricsUpdater periodically refreshes the collection gauge until ctx
// is done.
func (s *Server) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateGap)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			infos, err := s.store.Collections()
			if err != nil {
				s.logger.Warn("failed to refresh collection metrics", "error", err)
				continue
			}
			s.metrics.UpdateCollections(len(infos))
		}
	}
}

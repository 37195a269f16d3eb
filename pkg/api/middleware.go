package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ssargent/docport/pkg/archive"
	"github.com/ssargent/docport/pkg/logging"
	"github.com/ssargent/docport/pkg/storage"
)

// apiKeyMiddleware validates the X-API-Key header. An empty expectedKey
// disables the check.
func apiKeyMiddleware(expectedKey string, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				metrics.RecordAuthRequest(false)
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				metrics.RecordAuthRequest(false)
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			metrics.RecordAuthRequest(true)
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request through the injected logger.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logging.FromContext(r.Context(), base).Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		})
	}
}

// errorStatus maps failures to HTTP status codes. The first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{archive.ErrUnsupportedFormat, http.StatusBadRequest},
	{archive.ErrNoExtension, http.StatusBadRequest},
	{archive.ErrEmptyInput, http.StatusNotFound},
	{archive.ErrEmptyArchive, http.StatusUnprocessableEntity},
	{archive.ErrCorruptArchive, http.StatusUnprocessableEntity},
	{archive.ErrDisallowedName, http.StatusUnprocessableEntity},
	{archive.ErrDecode, http.StatusUnprocessableEntity},
	{archive.ErrEncode, http.StatusInternalServerError},
	{archive.ErrRead, http.StatusInternalServerError},
	{storage.ErrNotFound, http.StatusNotFound},
	{storage.ErrInvalidName, http.StatusBadRequest},
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// sendFailure sends err with the status from errorStatus.
func sendFailure(w http.ResponseWriter, err error) {
	sendError(w, err.Error(), statusFor(err))
}

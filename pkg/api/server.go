// Package api docport REST API
//
// @title           docport REST API
// @version         1.0.0
// @description     Export stored document collections as zip archives and import archives or single files.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
)

const shutdownTimeout = 10 * time.Second

// Routes builds the router with every endpoint and middleware attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", digestHeader, importIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(s.config.APIKey, s.metrics))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/collections", s.metrics.InstrumentHandler("GET", "/api/v1/collections", s.handleListCollections))
		r.Delete("/collections/{name}", s.metrics.InstrumentHandler("DELETE", "/api/v1/collections/{name}", s.handleDropCollection))

		r.Get("/export", s.metrics.InstrumentHandler("GET", "/api/v1/export", s.handleExport))
		r.Post("/import", s.metrics.InstrumentHandler("POST", "/api/v1/import", s.handleImport))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	return r
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerUI))
	case "/swagger/doc.json", "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			s.logger.Error("failed to render swagger doc", "error", err)
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	default:
		http.NotFound(w, r)
	}
}

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	 <title>docport API Documentation</title>
	 <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	 <div id="swagger-ui"></div>
	 <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	 <script>
	   window.onload = function() {
	     SwaggerUIBundle({
	       url: '/swagger/doc.json',
	       dom_id: '#swagger-ui',
	       presets: [
	         SwaggerUIBundle.presets.apis,
	         SwaggerUIBundle.presets.standalone
	       ]
	     });
	   };
	 </script>
</body>
</html>`

// Serve listens on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	SwaggerInfo.Host = ln.Addr().String()

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	updaterCtx, stopUpdater := context.WithCancel(ctx)
	defer stopUpdater()
	go s.startMetricsUpdater(updaterCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting docport REST API server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// ListenAndServe listens on config.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

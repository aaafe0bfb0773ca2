// Package httpapi implements the HTTP router and middleware stack: route
// dispatch, auth, CORS, body-size limiting, static asset fallback, and
// JSON error mapping over the tree-structured filesystem surface.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/filedash/filedash/internal/authn"
	"github.com/filedash/filedash/internal/config"
	"github.com/filedash/filedash/internal/fsservice"
	"github.com/filedash/filedash/internal/store"
)

// Server holds the dependencies shared by every handler.
type Server struct {
	fs            *fsservice.Service
	store         *store.Store
	tokens        *authn.TokenService
	hasher        *authn.Hasher
	logger        *slog.Logger
	maxUploadSize int64
	minFreeBytes  int64
	staticDir     string
	uploads       *uploadLimiter
	metrics       *metrics
}

// New constructs a Server and builds the routed http.Handler.
func New(cfg *config.Config, fs *fsservice.Service, st *store.Store, tokens *authn.TokenService, hasher *authn.Hasher, logger *slog.Logger, staticDir string) http.Handler {
	s := &Server{
		fs:            fs,
		store:         st,
		tokens:        tokens,
		hasher:        hasher,
		logger:        logger,
		maxUploadSize: cfg.Files.MaxUploadSize,
		minFreeBytes:  cfg.Files.MinFreeBytes,
		staticDir:     staticDir,
		uploads:       newUploadLimiter(cfg.Security.MaxConcurrentUploads),
		metrics:       &metrics{},
	}
	return s.router(cfg)
}

func (s *Server) router(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	corsMW := cors.New(cors.Options{
		AllowedOrigins:   cfg.Security.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// Middleware order: request-id → request log → CORS → body-size guard →
	// auth (login/health are exempt via unauthenticatedPaths).
	r.Use(requestID)
	r.Use(requestLog(s.logger))
	r.Use(corsMW.Handler)
	r.Use(maxBodyBytes(cfg.Security.MaxRequestSize))
	r.Use(requireAuth(s.tokens))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("OK")) //nolint:errcheck
	})
	r.Get("/health/ready", s.handleReady)
	r.Get("/metrics", s.metrics.metricsHandler(s.uploads.Active))

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)
	r.Get("/api/auth/me", s.handleMe)
	r.With(requireAdmin).Post("/api/auth/register", s.handleRegister)

	r.Get("/api/files", s.handleList)
	r.Get("/api/files/download/*", s.handleDownload)
	r.With(s.uploads.limit).Post("/api/files/upload", s.handleUpload)
	r.With(s.uploads.limit).Post("/api/files/upload-folder", s.handleUploadFolder)
	r.Delete("/api/files/*", s.handleDelete)
	r.Put("/api/files/rename", s.handleRename)
	r.Post("/api/files/mkdir", s.handleMkdir)

	// Static asset / SPA fallback: anything not matched above and not under
	// /api is served from staticDir, falling through to index.html so
	// client-side routing works.
	if s.staticDir != "" {
		fileServer := http.FileServer(http.Dir(s.staticDir))
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			if len(req.URL.Path) >= 4 && req.URL.Path[:4] == "/api" {
				writeErrorCode(w, http.StatusNotFound, "file_not_found", "no such API route")
				return
			}
			if _, err := http.Dir(s.staticDir).Open(req.URL.Path); err != nil {
				req = cloneRequestPath(req, "/index.html")
			}
			fileServer.ServeHTTP(w, req)
		})
	}

	return r
}

func cloneRequestPath(r *http.Request, path string) *http.Request {
	r2 := r.Clone(r.Context())
	r2.URL.Path = path
	return r2
}

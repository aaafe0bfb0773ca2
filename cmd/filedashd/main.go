// Command filedashd runs the filedash HTTP file-management service.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/filedash/filedash/internal/authn"
	"github.com/filedash/filedash/internal/bootstrap"
	"github.com/filedash/filedash/internal/cleanup"
	"github.com/filedash/filedash/internal/config"
	"github.com/filedash/filedash/internal/fsservice"
	"github.com/filedash/filedash/internal/httpapi"
	"github.com/filedash/filedash/internal/pathsafe"
	"github.com/filedash/filedash/internal/store"
)

var (
	configPath string
	staticDir  string
)

func main() {
	root := &cobra.Command{
		Use:   "filedashd",
		Short: "Run the filedash file-management server",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	root.Flags().StringVar(&staticDir, "static-dir", "", "directory of static frontend assets to serve alongside the API")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("configuration error", "err", err)
		os.Exit(1)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	logOpts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "text" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	}
	slog.SetDefault(logger)
	logger = logger.With("component", "filedashd")

	if err := os.MkdirAll(cfg.Files.HomeDirectory, 0o750); err != nil {
		logger.Error("failed to create files.home_directory", "err", err)
		os.Exit(1)
	}
	resolver, err := pathsafe.NewResolver(cfg.Files.HomeDirectory)
	if err != nil {
		logger.Error("failed to initialize path resolver", "err", err)
		os.Exit(1)
	}
	fs := fsservice.New(resolver)

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open persistent store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	hasher := authn.NewHasher(authn.DefaultHashParams())

	tokenTTL := time.Duration(cfg.Auth.TokenExpiration) * time.Second
	tokens, err := authn.NewTokenService([]byte(cfg.Auth.JWTSecret), tokenTTL, st)
	if err != nil {
		logger.Error("failed to initialize token service", "err", err)
		os.Exit(1)
	}

	// Root context — cancelled when a shutdown signal arrives. Background
	// goroutines (the revocation sweep) receive this context so they stop
	// cleanly without their own signal wiring.
	ctx, cancel := context.WithCancel(context.Background())

	if err := bootstrap.EnsureAdmin(ctx, cfg, st, hasher, logger); err != nil {
		logger.Error("admin bootstrap failed", "err", err)
		cancel()
		os.Exit(1)
	}

	sweepDone := cleanup.RunPeriodic(ctx, st, maxSweepAge(tokenTTL), time.Hour, logger)

	handler := httpapi.New(cfg, fs, st, tokens, hasher, logger, staticDir)

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		// ReadHeaderTimeout closes Slowloris: a client that never finishes
		// sending headers holds a goroutine until this fires.
		ReadHeaderTimeout: 10 * time.Second,
		// ReadTimeout/WriteTimeout are intentionally unlimited — a large
		// upload or ranged download can legitimately run for minutes, and a
		// finite deadline here would abort it mid-stream. Any outer-layer
		// proxy timeout (nginx, an ALB) is the right place to bound total
		// connection lifetime.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("filedash server starting", "addr", addr, "root", cfg.Files.HomeDirectory)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	logger.Info("shutdown signal received — draining connections")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}

	<-sweepDone
	logger.Info("filedash server stopped")
	return nil
}

// maxSweepAge bounds how long a revocation row is kept: a token can live at
// most tokenTTL past issuance, so any revocation older than that is inert.
func maxSweepAge(tokenTTL time.Duration) time.Duration {
	if tokenTTL <= 0 {
		return 24 * time.Hour
	}
	return tokenTTL
}

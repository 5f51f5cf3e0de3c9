package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cartoonify/internal/config"
	"cartoonify/internal/logger"
	"cartoonify/internal/metrics"
	"cartoonify/internal/repository/sqlite"
	"cartoonify/internal/routes"
	"cartoonify/internal/service"
	"cartoonify/internal/service/websocket"
	"cartoonify/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	store      *storage.VideoStore
	hubService *websocket.HubService
	manager    *service.Manager
	registry   *prometheus.Registry
}

func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter parameters: %w", err)
	}

	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := storage.NewVideoStore(cfg, log)
	hub := websocket.NewHubService(log)
	mng := service.NewManager(cfg, log, sqlite.NewVideoJobRepository(db), store, hub, metrics.NewCollector(registry))

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		store:      store,
		hubService: hub,
		manager:    mng,
		registry:   registry,
	}, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	defer a.logger.Close()
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.manager.FailInterruptedJobs(); err != nil {
		a.logger.Warning("Could not recover interrupted video jobs: %v", err)
	}
	if _, err := a.store.SweepUploads(storage.UploadMaxAge); err != nil {
		a.logger.Warning("Upload sweep failed: %v", err)
	}

	addr := fmt.Sprintf(":%d", a.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	a.logger.Info("🎨 Cartoonify server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("📁 Uploads: %s, output: %s, database: %s", a.config.UploadDirectory, a.config.OutputDirectory, a.config.DatabasePath)
	a.logger.Info("📷 Camera device %d, stream interval %v", a.config.CameraDevice, a.config.StreamInterval)

	return a.serve(ctx, listener)
}

// serve runs the progress hub and the HTTP server on listener until ctx is done.
func (a *App) serve(ctx context.Context, listener net.Listener) error {
	// Start background services
	go a.hubService.Run(ctx)

	server := &http.Server{
		Handler:           routes.SetupRoutes(a.manager, a.config, a.logger, a.registry),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx, so open streams and running video jobs stop on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

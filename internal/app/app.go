package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"charucocalib/internal/config"
	"charucocalib/internal/detector"
	"charucocalib/internal/logger"
	"charucocalib/internal/repository/sqlite"
	"charucocalib/internal/routes"
	"charucocalib/internal/services"
	"charucocalib/internal/services/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	detector   *detector.ArUco
	hubService *websocket.HubService
	manager    *services.Manager
	handler    http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Close()
		return nil, err
	}

	pipeline, det, err := NewPipeline(cfg, log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	calibrations := sqlite.NewCalibrationRepository(db)
	frames := sqlite.NewFrameRepository(db)
	hub := websocket.NewHubService(cfg, log)

	mng, err := services.NewManager(pipeline, calibrations, frames, hub, cfg, log)
	if err != nil {
		det.Close()
		db.Close()
		log.Close()
		return nil, err
	}

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		detector:   det,
		hubService: hub,
		manager:    mng,
		handler:    routes.SetupRoutes(mng, hub, calibrations, frames, cfg, log),
	}, nil
}

// Run serves HTTP until ctx is done, then aborts the running calibration and releases resources.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hubService.Run(hubCtx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.handler,
	}

	a.logger.Info("ChArUco calibration server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Database: %s, artifacts: %s", a.config.DBPath, a.config.ArtifactDir)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = server.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	a.manager.Abort()
	stopHub()
	return multierr.Combine(err, a.Close())
}

// Close releases the detector, the database and the log files.
func (a *App) Close() error {
	return multierr.Combine(
		a.detector.Close(),
		a.db.Close(),
		a.logger.Close(),
	)
}

// File: internal/server/app.go

// Package server wires the application together and exposes the HTTP
// surface. All state lives on an explicit App object with defined
// Initialize/Shutdown, injected into handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/agent"
	"github.com/gazerhq/gazer/internal/artifacts"
	"github.com/gazerhq/gazer/internal/config"
	"github.com/gazerhq/gazer/internal/detector"
	"github.com/gazerhq/gazer/internal/driver"
	"github.com/gazerhq/gazer/internal/grounding"
	"github.com/gazerhq/gazer/internal/sessions"
	"github.com/gazerhq/gazer/internal/toolset"
)

// Runner executes agent turns; the reference implementation is
// internal/agent, and tests substitute a stub.
type Runner interface {
	RunTurn(ctx context.Context, session schemas.Session, task string) <-chan schemas.TurnEvent
	DropSession(session schemas.Session)
}

// HealthChecker probes an upstream dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// App owns every long-lived component of the service.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	driver   *driver.Driver
	detector HealthChecker
	runner   Runner
	sessions *sessions.Store

	initialized bool
	httpServer  *http.Server

	// turnLocks serializes turns per session: the driver allows one
	// in-flight action, so concurrent turns on one session are forbidden.
	turnLocks sync.Map
}

// NewApp constructs the full component graph without touching the browser;
// Initialize launches it.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	det := detector.NewClient(cfg.Detector.URL, cfg.Detector.Timeout, logger)

	vision, err := grounding.NewGeminiVision(ctx, cfg.Grounding)
	if err != nil {
		return nil, fmt.Errorf("building vision model: %w", err)
	}
	resolver, err := grounding.NewResolver(det, vision, logger)
	if err != nil {
		return nil, fmt.Errorf("building resolver: %w", err)
	}

	drv := driver.NewDriver(cfg.Browser, cfg.Network, resolver, nil, logger)
	store := artifacts.NewStore()

	tools, err := toolset.New(drv, store, cfg.Agent, logger)
	if err != nil {
		return nil, fmt.Errorf("building toolset: %w", err)
	}

	runner, err := agent.NewRunner(ctx, cfg.Agent, tools, store, logger)
	if err != nil {
		return nil, fmt.Errorf("building runner: %w", err)
	}

	return &App{
		cfg:      cfg,
		logger:   logger.Named("server"),
		driver:   drv,
		detector: det,
		runner:   runner,
		sessions: sessions.NewStore(cfg.Agent.AppName, logger),
	}, nil
}

// Initialize launches the browser and marks the app ready to serve turns.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.driver.Initialize(ctx); err != nil {
		return err
	}
	a.initialized = true
	return nil
}

// Shutdown closes the browser.
func (a *App) Shutdown(ctx context.Context) error {
	a.initialized = false
	return a.driver.Close(ctx)
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts everything down
// gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	a.httpServer = &http.Server{
		Addr:    a.cfg.Server.Addr(),
		Handler: a.Router(),
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		a.logger.Info("Server starting", zap.String("address", a.cfg.Server.Addr()))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		return a.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped.")
	return nil
}

// turnLock returns the mutex serializing turns for one session.
func (a *App) turnLock(key string) *sync.Mutex {
	lock, _ := a.turnLocks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

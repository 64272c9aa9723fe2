// Package server initializes and runs the snapgrid HTTP server. It wires the
// persistence facade and migration coordinator, handles graceful shutdown,
// and serves the public and admin APIs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/snapgrid/snapgrid/internal/backend"
	"github.com/snapgrid/snapgrid/internal/config"
	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/migrate"
	"github.com/snapgrid/snapgrid/internal/persist"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	facade      *persist.Facade
	coordinator *migrate.Coordinator
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	open := backend.Opener(logger)
	facade := persist.NewFacade(open, logger)
	coordinator := migrate.NewCoordinator(facade, open, logger)

	return &App{
		config:      c,
		logger:      logger,
		facade:      facade,
		coordinator: coordinator,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, release := context.WithTimeout(context.Background(), 5*time.Second)
		defer release()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.facade.Initialize(ctx, app.config.PersistConfig()); err != nil {
		return fmt.Errorf("persistence init error: %w", err)
	}
	defer func() {
		if err := app.facade.Close(); err != nil {
			app.logger.Error(ctx, "closing persistence", "error", err)
		}
	}()

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	return nil
}

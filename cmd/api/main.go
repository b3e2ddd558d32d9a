package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/wholesail/wholesail/config"
	"github.com/wholesail/wholesail/internal/app"
	"github.com/wholesail/wholesail/pkg/logger"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	// cleanupHeadroom is added on top of the drain timeout so Redis, the
	// database and the exporters still get closed after a slow drain.
	cleanupHeadroom = 5 * time.Second
	forceGrace      = 2 * time.Second
)

var errForcedShutdown = errors.New("forced shutdown")

// NewAppFunc builds the application for runServer.
type NewAppFunc func(cfg *config.Config, opts ...app.AppOption) app.AppInterface

// Swapped in tests.
var (
	osExit                  = os.Exit
	signalNotify            = signal.Notify
	newApp       NewAppFunc = app.NewApp
)

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

// runServer starts the storefront and blocks until it stops, either because
// the listener failed or because a termination signal drained it.
func runServer(cfg *config.Config, appLogger logger.Logger) error {
	instance := newApp(cfg, app.WithLogger(appLogger))
	if err := instance.Initialize(); err != nil {
		appLogger.WithField("error", err.Error()).Error("Failed to initialize application")
		return err
	}

	signals := make(chan os.Signal, 1)
	signalNotify(signals, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server started successfully")
		serverErr <- instance.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			appLogger.WithField("error", err.Error()).Error("Server error")
		}
		return err
	case sig := <-signals:
		appLogger.WithField("signal", sig.String()).Info("Shutdown signal received - starting graceful shutdown")
		return drain(instance, shutdownTimeout(cfg), appLogger)
	}
}

// drain stops accepting requests and waits for in-flight ones. A second
// signal cancels the wait.
func drain(instance app.AppInterface, timeout time.Duration, appLogger logger.Logger) error {
	instance.SetShutdownTimeout(timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout+cleanupHeadroom)
	defer cancel()

	appLogger.WithFields(map[string]interface{}{
		"active_requests": instance.GetActiveRequestCount(),
		"timeout":         timeout.String(),
	}).Info("Draining in-flight requests, send the signal again to force exit")

	force := make(chan os.Signal, 1)
	signalNotify(force, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- instance.Shutdown(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			appLogger.WithField("error", err.Error()).Error("Error during graceful shutdown")
			return err
		}
		appLogger.Info("Server shut down gracefully")
		return nil
	case sig := <-force:
		appLogger.WithField("signal", sig.String()).Warn("Force shutdown signal received - terminating immediately")
		cancel()
		select {
		case err := <-done:
			if err != nil {
				appLogger.WithField("error", err.Error()).Error("Error during forced shutdown")
			}
		case <-time.After(forceGrace):
			appLogger.Warn("Forced shutdown timeout - exiting immediately")
		}
		return errForcedShutdown
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLoggerWithLevel(cfg.LogLevel)
	appLogger.WithFields(map[string]interface{}{
		"version":        cfg.Version,
		"environment":    cfg.Environment,
		"email_provider": cfg.Email.Provider,
	}).Info(fmt.Sprintf("Starting storefront on %s:%d", cfg.Server.Host, cfg.Server.Port))

	if err := runServer(cfg, appLogger); err != nil {
		osExit(1)
	}
}

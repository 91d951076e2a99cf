package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoestore/config"
	"shoestore/internal/redisclient"
	"shoestore/internal/store"
	"shoestore/internal/util"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shoestore",
	Short: "Shoe store catalog and order service",
	Long:  "Runs the REST API, the storefront, the order event audit worker, and database maintenance tasks.",
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}

// app holds the process-wide dependencies shared by every subcommand
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	tp     *sdktrace.TracerProvider
}

func boot(component string) (*app, error) {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger := util.GetLogger().With(zap.String("component", component))
	logger.Info("Starting shoestore")

	tp, err := util.InitTracer(cfg.Observ.ServiceName+"-"+component, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}

	db, err := store.NewStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	db.SetMaxRetries(cfg.Business.TxMaxRetries)
	logger.Info("Database connected")

	return &app{cfg: cfg, logger: logger, store: db, tp: tp}, nil
}

func (a *app) redis(required bool) (*redisclient.Client, error) {
	rc, err := redisclient.NewClient(a.cfg.Redis)
	if err != nil {
		if required {
			return nil, err
		}
		a.logger.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
		return nil, nil
	}
	a.logger.Info("Redis connected")
	return rc, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Error closing database", zap.Error(err))
	}
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tp.Shutdown(ctx); err != nil {
			a.logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}
	util.SyncLogger()
}

// waitForSignal blocks until SIGINT or SIGTERM
func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// serveHTTP runs srv until a shutdown signal arrives
func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}

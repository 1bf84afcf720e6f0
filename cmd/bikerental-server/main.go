// Command bikerental-server serves the bike rental JSON API.
//
// Configuration comes from BIKERENTAL_* environment variables; see
// internal/config. The process stops on SIGINT or SIGTERM after in-flight
// requests finish and queued document writes are committed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bikerental/internal/adapters/httpapi"
	"bikerental/internal/blob"
	"bikerental/internal/config"
	"bikerental/internal/core"
	"bikerental/internal/store"
)

const shutdownTimeout = 15 * time.Second

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}

// app is the assembled server and the resources it must release.
type app struct {
	logger *slog.Logger
	store  *store.Store
	server *http.Server
}

func newApp(ctx context.Context, cfg config.App, logger *slog.Logger) (*app, error) {
	backend, err := core.OpenDocumentBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	metrics := core.NewPrometheusMetrics()

	storeOpts := []store.Option{
		store.WithLogger(logger),
		store.WithQueueSize(cfg.WriteQueue),
		store.WithObserver(metrics),
	}
	handlerOpts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(metrics, metrics.Handler()),
	}
	if cfg.Archive.Enabled() {
		bs, err := blob.Open(ctx, cfg.Archive)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		archiver := blob.NewArchiver(bs, blob.WithArchiveLogger(logger), blob.WithRetention(cfg.Archive.Keep))
		storeOpts = append(storeOpts, store.WithCommitHook(archiver.Archive))
		handlerOpts = append(handlerOpts, httpapi.WithSnapshots(archiver))
		logger.Info("snapshot archive enabled", "driver", bs.Driver(), "keep", cfg.Archive.Keep)
	}

	docs := store.New(backend, storeOpts...)
	docs.Start()
	svc := core.NewService(docs, core.WithLogger(logger), core.WithMetricsRecorder(metrics))
	handlerOpts = append(handlerOpts, httpapi.WithHealth(docs))

	return &app{
		logger: logger,
		store:  docs,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpapi.NewHandler(svc, handlerOpts...),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// serve accepts on ln until ctx is done, then shuts the server down and
// drains the store.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(ln) }()
	a.logger.Info("listening", "addr", ln.Addr().String(), "storage", a.store.Driver())

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("shutdown server: %w", err))
	}
	if err := a.store.Close(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("close store: %w", err))
	}
	return serveErr
}

func run(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger(logOut)
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = a.store.Close(context.WithoutCancel(ctx))
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return a.serve(ctx, ln)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/grez-lucas/livelo-scraper/internal/config"
	"github.com/grez-lucas/livelo-scraper/internal/envelope"
	"github.com/grez-lucas/livelo-scraper/internal/httpapi"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty/livelo"
)

// shutdownTimeout leaves in-flight runs time to close their browsers.
const shutdownTimeout = 2 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Set up structured logging.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg)

	// 3. Build the credential codec. This stretches the master secret once.
	codec, err := envelope.New(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("create envelope codec: %w", err)
	}

	// 4. Build the browser driver and the pipeline.
	driverOpts := []browser.RodOption{
		browser.WithMode(cfg.BrowserMode),
		browser.WithHeadless(cfg.Headless),
		browser.WithScreenshotDir(cfg.ScreenshotDir),
		browser.WithLogger(logger),
	}
	if cfg.BrowserBin != "" {
		driverOpts = append(driverOpts, browser.WithBin(cfg.BrowserBin))
	}

	scraper, err := livelo.NewScraper(browser.NewRodDriver(driverOpts...), codec,
		livelo.WithBaseURL(cfg.BaseURL),
		livelo.WithPacing(livelo.DefaultPacing().Scale(cfg.PacingScale)),
		livelo.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}

	// 5. Set up the HTTP server.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := httpapi.New(scraper,
		httpapi.WithMaxConcurrentRuns(cfg.MaxConcurrentRuns),
		httpapi.WithRegistry(registry),
		httpapi.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Serve until interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 7. Graceful shutdown.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// Command nasindexd is the NAS indexing daemon: it loads configuration,
// opens the catalog and source manager, and serves the HTTP surface until
// an interrupt or terminate signal arrives.
//
// Grounded on marmos91-dittofs's cmd/dittofs/commands/start.go: config
// load, structured-logger init, background server goroutine plus a
// SIGINT/SIGTERM select for graceful shutdown. This daemon has no daemon/
// detach mode (spec.md never asks for one) and no control-plane store —
// only the catalog, source manager, scanner, and HTTP surface dittofs's
// own "runtime" assembles for its much larger adapter/control-plane split.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/config"
	"github.com/nasindex/nasindex/internal/extract"
	"github.com/nasindex/nasindex/internal/httpapi"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/logging"
	"github.com/nasindex/nasindex/internal/pathresolve"
	"github.com/nasindex/nasindex/internal/scanner"
	"github.com/nasindex/nasindex/internal/smbfs"
	"github.com/nasindex/nasindex/internal/source"
	"github.com/nasindex/nasindex/internal/telemetry"
	"github.com/nasindex/nasindex/internal/vault"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "nasindexd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogJSON)
	rootLog := logging.Component(log, "nasindexd")

	if cfg.DevModeAuth() {
		rootLog.Warn("auth token is the default dev-mode value; the HTTP surface is unauthenticated")
	}

	if err := os.MkdirAll(cfg.CachePath, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	store, err := catalog.Open(filepath.Join(cfg.CachePath, cfg.DatabasePath), cfg.EnrichmentWorkers+2)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	v, err := vault.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	client := smbfs.NewClient(5 * time.Minute)
	defer client.Shutdown()

	sources, err := source.Open(filepath.Join(cfg.CachePath, "nas_connection.json"), v, client)
	if err != nil {
		return fmt.Errorf("open source manager: %w", err)
	}
	for _, src := range sources.SMBSources() {
		if err := client.RegisterSource(context.Background(), src); err != nil {
			rootLog.WithError(err).WithField("source", src.Label).Warn("failed to register source at startup")
		}
	}

	resolver := pathresolve.New(sources)

	scanCfg := scanner.DefaultConfig()
	scanCfg.BatchSize = cfg.ScanBatchSize
	scanCfg.EnrichWorkers = cfg.EnrichmentWorkers
	scanCfg.HashSampleSizeKB = cfg.HashSampleSizeKB
	scanCfg.MaxTextExtractMB = cfg.MaxTextExtractMB
	scanCfg.MaxTextStoreKB = cfg.MaxTextStoreKB
	scn := scanner.New(client, store, sources, extract.NoopExtractor{}, extract.NoopExtractor{}, scanCfg)

	ctl := lifecycle.New()
	metrics := telemetry.New()

	router := httpapi.NewRouter(httpapi.Deps{
		Store:     store,
		Sources:   sources,
		Resolver:  resolver,
		Lifecycle: ctl,
		RunScan:   scn.Run,
		Metrics:   metrics,
		Log:       logging.Component(log, "httpapi"),
		AuthToken: cfg.AuthToken,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}

	serverDone := make(chan error, 1)
	go func() {
		rootLog.WithField("addr", srv.Addr).Info("http surface listening")
		var err error
		if cfg.SSLCertPath != "" && cfg.SSLKeyPath != "" {
			err = srv.ListenAndServeTLS(cfg.SSLCertPath, cfg.SSLKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err == http.ErrServerClosed {
			err = nil
		}
		serverDone <- err
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		signal.Stop(sigCh)
		rootLog.Info("shutdown signal received")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("http surface: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ctl.Shutdown(shutdownCtx); err != nil {
		rootLog.WithError(err).Warn("scan did not stop within shutdown timeout")
	}
	client.CleanupAllTemp()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http surface shutdown: %w", err)
	}
	return <-serverDone
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/renderscope/pkg/telemetry"
	"github.com/AleutianAI/renderscope/services/profile"
	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	servePort     int
	serveDebug    bool
	serveWatchDir string
	serveNoStore  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the renderscope HTTP API server",
	Long: `Serves the analysis API:

  POST   /v1/profile/analyze        analyze an uploaded export
  GET    /v1/profile/reports/:id    fetch a cached report
  POST   /v1/profile/compare        compare two reports
  POST   /v1/profile/baselines      save a report as a named baseline
  GET    /v1/profile/baselines      list saved baselines
  DELETE /v1/profile/baselines/:name
  GET    /v1/profile/health
  GET    /metrics                   Prometheus scrape endpoint

With --watch, export files dropped into the directory are analyzed
automatically and registered so they can be fetched or compared.`,
	RunE: runServeCommand,
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("Telemetry shutdown incomplete", slog.String("error", err.Error()))
		}
	}()

	svc := newProfileService()
	handlers := profile.NewHandlers(svc)

	if !serveNoStore {
		store, err := openBaselineStore()
		if err != nil {
			return err
		}
		defer store.Close()
		handlers = handlers.WithStore(store)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if serveDebug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	profile.RegisterRoutes(v1, handlers)

	if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	if serveWatchDir != "" {
		watcher, err := watchExports(ctx, svc, serveWatchDir)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	port := servePort
	if port == 0 {
		port = config.Server.Port
	}
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting renderscope server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down renderscope server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchExports watches a directory and analyzes every JSON export
// written into it. The caller closes the returned watcher.
func watchExports(ctx context.Context, svc *profile.Service, dir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Info("Watching for export files", slog.String("dir", dir))

	go func() {
		// Writers rarely produce a single atomic write, so debounce
		// per path and analyze once events go quiet.
		pending := make(map[string]time.Time)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
					continue
				}
				pending[event.Name] = time.Now()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Watcher error", slog.String("error", err.Error()))
			case now := <-ticker.C:
				for path, last := range pending {
					if now.Sub(last) < time.Second {
						continue
					}
					delete(pending, path)
					analyzeWatchedFile(ctx, svc, path)
				}
			}
		}
	}()

	return watcher, nil
}

func analyzeWatchedFile(ctx context.Context, svc *profile.Service, path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Cannot open watched export", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	defer f.Close()

	report, err := svc.AnalyzeReader(ctx, f, filepath.Base(path))
	if err != nil {
		slog.Warn("Watched export failed analysis",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("Analyzed watched export",
		slog.String("path", path),
		slog.String("report_id", report.ID),
		slog.Int("hotspots", len(report.Hotspots)))
}

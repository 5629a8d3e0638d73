// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codelibrarian/codelibrarian/internal/config"
	"github.com/codelibrarian/codelibrarian/internal/embedclient"
	"github.com/codelibrarian/codelibrarian/internal/errors"
	"github.com/codelibrarian/codelibrarian/internal/indexer"
	"github.com/codelibrarian/codelibrarian/internal/metrics"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

// runIndex executes the 'index' CLI command: walk the repository, parse
// source files with Tree-sitter, resolve call/import/inherit edges, and
// (if configured) compute embeddings.
//
// Flags:
//   - --full: reparse every file and remove rows for files that vanished
//   - --reembed: mark every symbol's embedding stale and recompute it
//   - --workers: number of parallel parse workers (default: 4)
//   - --debug: enable debug logging
//   - --metrics-addr: HTTP address for a Prometheus /metrics endpoint
//
// Examples:
//
//	codelibrarian index                 Incremental index (only changed files)
//	codelibrarian index --full          Force full reindex
//	codelibrarian index --reembed       Recompute every embedding
//	codelibrarian index --workers 16    Use 16 parallel parse workers
func runIndex(args []string, configPath string, globals GlobalFlags) {
	progressCfg := NewProgressConfig(globals)
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force full reindex and remove vanished files")
	reembed := fs.Bool("reembed", false, "Mark all embeddings stale and recompute them")
	workers := fs.Int("workers", 4, "Number of parallel parse workers")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codelibrarian index [options]

Indexes the current repository using .codelibrarian/config.toml.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root := projectRoot(configPath)
	cfg, err := loadOrDefaultConfig(root)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load codelibrarian configuration",
			err.Error(),
			"Run 'codelibrarian init' to create a new configuration",
			err,
		), globals.JSON)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	var recorder *metrics.Recorder
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.New(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	queue, err := NewIndexQueue(root)
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot set up index lock",
			err.Error(),
			"This is a bug. Please report it at github.com/codelibrarian/codelibrarian/issues",
			err,
		), globals.JSON)
	}
	acquired, err := queue.TryAcquireLock()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot acquire index lock",
			err.Error(),
			"This is a bug. Please report it at github.com/codelibrarian/codelibrarian/issues",
			err,
		), globals.JSON)
	}
	if !acquired {
		errors.FatalError(errors.NewDatabaseError(
			"Another index run is already in progress",
			"The project lock file is held by a running 'codelibrarian index'",
			"Wait for the other run to finish, or remove the stale lock if it crashed",
			nil,
		), globals.JSON)
	}
	defer queue.ReleaseLock()

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open index database",
			err.Error(),
			"Close other codelibrarian instances or run: codelibrarian reset --yes",
			err,
		), globals.JSON)
	}
	defer func() { _ = s.Close() }()

	pass := &indexer.Pass{
		Store:        s,
		Config:       cfg,
		Logger:       logger,
		Metrics:      recorder,
		Embedder:     buildEmbedder(cfg),
		Full:         *full,
		Reembed:      *reembed,
		ParseWorkers: *workers,
	}

	spinner := NewSpinner(progressCfg, phaseDescription("parsing"))
	if spinner != nil {
		go func() {
			for spinner.Add(1) == nil {
				time.Sleep(100 * time.Millisecond)
			}
		}()
	}

	start := time.Now()
	stats, err := pass.Run(ctx)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if recorder != nil {
		recorder.ObservePass(time.Since(start).Seconds())
	}
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Indexing failed",
			err.Error(),
			"Run 'codelibrarian index --debug' for detailed logs",
			err,
		), globals.JSON)
	}

	printIndexStats(stats, time.Since(start))
}

// buildEmbedder constructs the configured embedding provider, or nil if
// embeddings are disabled.
func buildEmbedder(cfg *config.Config) embedclient.Provider {
	if !cfg.Embeddings.Enabled {
		return nil
	}
	client := embedclient.NewOpenAI(cfg.Embeddings.APIURL, cfg.Embeddings.Model, cfg.Embeddings.Dimensions)
	retry := embedclient.DefaultRetryConfig()
	retry.MaxRetries = cfg.Embeddings.MaxRetries
	client.SetRetryConfig(retry)
	return client
}

func printIndexStats(stats indexer.Stats, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("=== Indexing Complete ===")
	fmt.Printf("Files Scanned:     %d\n", stats.FilesScanned)
	fmt.Printf("Files Indexed:     %d\n", stats.FilesIndexed)
	fmt.Printf("Files Skipped:     %d (unchanged)\n", stats.FilesSkipped)
	if stats.FilesRemoved > 0 {
		fmt.Printf("Files Removed:     %d (vanished from disk)\n", stats.FilesRemoved)
	}
	if stats.FilesFailed > 0 {
		fmt.Printf("Files Failed:      %d (read or store error)\n", stats.FilesFailed)
	}
	fmt.Printf("Imports Resolved:  %d\n", stats.ImportsResolved)
	fmt.Printf("Calls Resolved:    %d\n", stats.CallsResolved)
	fmt.Printf("Inherits Resolved: %d\n", stats.InheritsResolved)
	if stats.EmbeddingsWritten > 0 {
		fmt.Printf("Embeddings:        %d\n", stats.EmbeddingsWritten)
	}
	fmt.Printf("Elapsed:           %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()
}

// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package indexer drives one indexing pass: discover files under the
// configured root, parse the ones that changed, write what the parser
// found into the store, resolve cross-file edges, and compute embeddings
// for anything still missing one.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/codelibrarian/codelibrarian/internal/config"
	"github.com/codelibrarian/codelibrarian/internal/embedclient"
	"github.com/codelibrarian/codelibrarian/internal/metrics"
	"github.com/codelibrarian/codelibrarian/internal/model"
	"github.com/codelibrarian/codelibrarian/internal/parser"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

// Pass holds everything one indexing run needs, threaded explicitly rather
// than read off package-level state so more than one pass (e.g. in tests)
// can run in the same process without colliding.
type Pass struct {
	Store     *store.Store
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
	Embedder  embedclient.Provider
	Full      bool // ignore file-hash-unchanged skip, reparse everything
	Reembed   bool // mark every symbol's embedding stale and recompute it
	ParseWorkers int
}

// Stats summarizes one completed pass.
type Stats struct {
	FilesScanned   int
	FilesIndexed   int
	FilesSkipped   int
	FilesRemoved   int
	FilesFailed    int
	ImportsResolved  int
	CallsResolved    int
	InheritsResolved int
	EmbeddingsWritten int
}

func (p *Pass) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pass) workers() int {
	if p.ParseWorkers > 0 {
		return p.ParseWorkers
	}
	return 4
}

// Run executes discovery, parsing, edge resolution, and (if embeddings are
// enabled) the embedding pass, in that order. Edge resolution must follow
// every file write, since a call target may live in a file discovered
// later in the walk than its caller.
func (p *Pass) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats
	defer func() { p.Metrics.ObservePass(time.Since(start).Seconds()) }()

	root := p.Config.Index.Root
	if root == "." || root == "" {
		root = p.Config.ProjectRoot
	}

	files, err := discover(root, p.Config.Index.Exclude, p.Config.Index.Languages)
	if err != nil {
		return stats, fmt.Errorf("discover files under %s: %w", root, err)
	}
	stats.FilesScanned = len(files)
	for range files {
		p.Metrics.FileScanned()
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.AbsPath] = true
	}

	results := p.parseAll(ctx, files)
	for _, r := range results {
		switch {
		case r.skipped:
			stats.FilesSkipped++
			p.Metrics.FileSkipped()
		case r.failed:
			stats.FilesFailed++
			p.Metrics.FileFailed()
		default:
			stats.FilesIndexed++
			p.Metrics.FileIndexed()
		}
	}

	if p.Full {
		vanished, err := p.Store.VanishedFiles(ctx, seen)
		if err != nil {
			return stats, fmt.Errorf("find vanished files: %w", err)
		}
		for _, f := range vanished {
			if err := p.Store.DeleteFileData(ctx, f.ID); err != nil {
				p.logger().Warn("indexer.vanished.delete_failed", "path", f.Path, "err", err)
				continue
			}
			stats.FilesRemoved++
			p.Metrics.FileRemoved()
		}
	}

	edgeStats, err := p.Store.ResolveEdges(ctx)
	if err != nil {
		return stats, fmt.Errorf("resolve edges: %w", err)
	}
	stats.ImportsResolved = edgeStats.ImportsResolved
	stats.CallsResolved = edgeStats.CallsResolved
	stats.InheritsResolved = edgeStats.InheritsResolved
	p.Metrics.EdgesResolved(edgeStats.ImportsResolved + edgeStats.CallsResolved + edgeStats.InheritsResolved)

	if p.Config.Embeddings.Enabled && p.Embedder != nil {
		if p.Reembed {
			if err := p.Store.InvalidateEmbeddings(ctx); err != nil {
				return stats, fmt.Errorf("invalidate embeddings: %w", err)
			}
		}
		written, err := p.runEmbeddings(ctx)
		if err != nil {
			// Matches spec's "log once, abort the embedding pass" contract:
			// a broken embedding provider doesn't fail the whole index.
			p.logger().Warn("indexer.embed.aborted", "err", err)
			p.Metrics.EmbeddingError()
		}
		stats.EmbeddingsWritten = written
	}

	return stats, nil
}

type parseOutcome struct {
	skipped bool
	failed  bool
}

// parseAll parses changed files concurrently, writing each file's result
// to the store under its own transaction as soon as it's ready. Hashing
// and parsing run in parallel across p.workers() goroutines; store
// writes are already serialized internally by store.Store, so no extra
// locking is needed here.
func (p *Pass) parseAll(ctx context.Context, files []discoveredFile) []parseOutcome {
	outcomes := make([]parseOutcome, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			outcomes[i] = p.parseOne(ctx, files[i])
		}
	}

	n := p.workers()
	wg.Add(n)
	for i := 0; i < n; i++ {
		go worker()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

func (p *Pass) parseOne(ctx context.Context, f discoveredFile) parseOutcome {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		p.logger().Warn("indexer.read.error", "path", f.RelPath, "err", err)
		return parseOutcome{failed: true}
	}
	info, err := os.Stat(f.AbsPath)
	if err != nil {
		p.logger().Warn("indexer.stat.error", "path", f.RelPath, "err", err)
		return parseOutcome{failed: true}
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	fileID, unchanged, err := p.Store.UpsertFile(ctx, &model.File{
		Path:     f.AbsPath,
		RelPath:  f.RelPath,
		Language: f.Language,
		ModTime:  info.ModTime().Unix(),
		Hash:     hash,
	})
	if err != nil {
		p.logger().Warn("indexer.upsert_file.error", "path", f.RelPath, "err", err)
		return parseOutcome{failed: true}
	}
	if unchanged && !p.Full {
		return parseOutcome{skipped: true}
	}

	parseStart := time.Now()
	result := parser.Dispatch(f.Language, f.RelPath, content)
	p.Metrics.ObserveParse(time.Since(parseStart).Seconds())

	if err := p.Store.WriteParseResult(ctx, fileID, &result); err != nil {
		p.logger().Warn("indexer.write_result.error", "path", f.RelPath, "err", err)
		return parseOutcome{failed: true}
	}
	p.Metrics.SymbolsWritten(len(result.Symbols))
	return parseOutcome{}
}

// runEmbeddings batches symbols missing an embedding into groups of
// config.Embeddings.BatchSize, truncates each symbol's embedding text to
// MaxChars, and submits one batch at a time. A batch failure stops the
// pass; symbols already embedded keep their vectors.
func (p *Pass) runEmbeddings(ctx context.Context) (int, error) {
	written := 0
	batchSize := p.Config.Embeddings.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	for {
		symbols, err := p.Store.SymbolsMissingEmbeddings(ctx, batchSize)
		if err != nil {
			return written, fmt.Errorf("list symbols missing embeddings: %w", err)
		}
		if len(symbols) == 0 {
			return written, nil
		}

		texts := make([]string, len(symbols))
		for i, sym := range symbols {
			texts[i] = embeddingText(sym, p.Config.Embeddings.MaxChars)
		}

		embedStart := time.Now()
		vectors, err := p.Embedder.Embed(ctx, texts)
		p.Metrics.ObserveEmbed(time.Since(embedStart).Seconds())
		if err != nil {
			return written, fmt.Errorf("embed batch of %d: %w", len(texts), err)
		}
		if len(vectors) != len(symbols) {
			return written, fmt.Errorf("embedding provider returned %d vectors for %d symbols", len(vectors), len(symbols))
		}

		for i, sym := range symbols {
			if err := p.Store.UpsertEmbedding(ctx, sym.ID, vectors[i]); err != nil {
				return written, fmt.Errorf("store embedding for symbol %d: %w", sym.ID, err)
			}
			written++
			p.Metrics.EmbeddingComputed()
		}
	}
}

// embeddingText concatenates a symbol's qualified name, signature, and
// documentation into one string, truncated to maxChars.
func embeddingText(sym model.Symbol, maxChars int) string {
	text := sym.QualifiedName
	if sym.Signature != "" {
		text += "\n" + sym.Signature
	}
	if sym.Documentation != "" {
		text += "\n" + sym.Documentation
	}
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

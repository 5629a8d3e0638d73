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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/codelibrarian/codelibrarian/internal/config"
	"github.com/codelibrarian/codelibrarian/internal/errors"
	"github.com/codelibrarian/codelibrarian/internal/mcp"
	"github.com/codelibrarian/codelibrarian/internal/output"
	"github.com/codelibrarian/codelibrarian/internal/rewrite"
	"github.com/codelibrarian/codelibrarian/internal/search"
	"github.com/codelibrarian/codelibrarian/internal/store"
	"github.com/codelibrarian/codelibrarian/internal/ui"
)

// runSearch executes the 'search' CLI command against the local index:
// hybrid full-text/semantic ranking, with graph-intent phrasings ("who
// calls X", "hierarchy of X") routed straight to a graph traversal.
//
// Examples:
//
//	codelibrarian search "parses a toml config"
//	codelibrarian search "who calls NewPipeline" --json
//	codelibrarian search "retry logic" --mode text --limit 5
func runSearch(args []string, configPath string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	limit := fs.Int("limit", 20, "Maximum number of results")
	mode := fs.String("mode", "hybrid", "Search mode: hybrid, text, or semantic")
	forceRewrite := fs.Bool("rewrite", false, "Force the query-rewrite pass even for code-shaped queries")
	timeout := fs.Duration("timeout", 30*time.Second, "Search timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codelibrarian search [options] <query>

Searches the local code index.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  codelibrarian search "parses a toml config"
  codelibrarian search "who calls NewPipeline"
  codelibrarian search "callers of store.UpsertFile" --json

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		errors.FatalError(errors.NewInputError(
			"Missing query",
			"The search command requires a query argument",
			"Run 'codelibrarian search \"<query>\"'",
		), *jsonOutput)
	}
	query := fs.Arg(0)

	root := projectRoot(configPath)
	cfg, err := loadOrDefaultConfig(root)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load codelibrarian configuration",
			err.Error(),
			"Run 'codelibrarian init' to create a new configuration",
			err,
		), *jsonOutput)
	}

	if _, err := os.Stat(cfg.DBPath()); os.IsNotExist(err) {
		errors.FatalError(errors.NewNotFoundError(
			"Project not indexed yet",
			fmt.Sprintf("No index database found at %s", cfg.DBPath()),
			"Run 'codelibrarian index' to build the index",
		), *jsonOutput)
	}

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open codelibrarian database",
			err.Error(),
			"Close other codelibrarian instances or run: codelibrarian reset --yes",
			err,
		), *jsonOutput)
	}
	defer func() { _ = s.Close() }()

	engine := &search.Engine{
		Store:           s,
		Embedder:        buildEmbedder(cfg),
		Rewriter:        buildRewriter(cfg),
		FocusMultiplier: cfg.Search.FocusMultiplier,
	}
	server := &mcp.Server{Store: s, Search: engine}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	hits, err := server.SearchCode(ctx, query, *limit, *mode, *forceRewrite)
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Search failed",
			err.Error(),
			"This is a bug. Please report it at github.com/codelibrarian/codelibrarian/issues",
			err,
		), *jsonOutput)
	}

	if *jsonOutput {
		if err := output.JSON(hits); err != nil {
			errors.FatalError(err, true)
		}
	} else {
		printSearchResults(hits)
	}
}

// buildRewriter constructs the configured query-rewrite client, or nil if
// query rewriting is disabled.
func buildRewriter(cfg *config.Config) *rewrite.Client {
	if !cfg.QueryRewrite.Enabled {
		return nil
	}
	timeout := time.Duration(cfg.QueryRewrite.Timeout) * time.Second
	return rewrite.New(cfg.QueryRewrite.APIURL, cfg.QueryRewrite.Model, timeout)
}

func printSearchResults(hits []mcp.SearchHit) {
	if len(hits) == 0 {
		ui.Warning("No results")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTYPE\tSYMBOL\tFILE")
	for _, h := range hits {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s:%d\n", h.Score, h.MatchType, h.Symbol.QualifiedName, h.Symbol.FilePath, h.Symbol.StartLine)
	}
	_ = w.Flush()
	fmt.Println()
	ui.Success(fmt.Sprintf("%d results", len(hits)))
}

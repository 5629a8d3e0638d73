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

// Package search answers a query string by classifying it as graph-intent
// or text-intent, running full-text and/or vector lookups for the latter,
// merging and ranking the results, and optionally consulting a query
// rewriter. It reads internal/store directly; it owns no storage itself.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codelibrarian/codelibrarian/internal/embedclient"
	"github.com/codelibrarian/codelibrarian/internal/model"
	"github.com/codelibrarian/codelibrarian/internal/rewrite"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

// Mode restricts a search to one retrieval path, or leaves both on.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeText     Mode = "text"
	ModeSemantic Mode = "semantic"
)

// Options configures one Search call.
type Options struct {
	Limit   int
	Mode    Mode
	Rewrite bool // force the rewriter even if the heuristic wouldn't trigger it
}

// Engine answers search and graph-relationship queries.
type Engine struct {
	Store           *store.Store
	Embedder        embedclient.Provider // nil disables semantic search entirely
	Rewriter        *rewrite.Client      // nil disables the rewrite collaborator
	FocusMultiplier float64
}

func (e *Engine) focusMultiplier() float64 {
	if e.FocusMultiplier > 0 {
		return e.FocusMultiplier
	}
	return 0.5
}

// Search is the single entry point: graph-intent queries are routed to a
// graph traversal and returned immediately; everything else goes through
// hybrid FTS/vector search, with an optional rewrite pass.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]model.SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if intent, target, ok := classifyIntent(query); ok {
		return e.runGraphIntent(ctx, intent, target)
	}

	results, err := e.hybridSearch(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	rewriteConsulted := false
	if e.Rewriter != nil && (opts.Rewrite || rewrite.ShouldRewrite(query)) {
		results = e.applyRewrite(ctx, query, results, opts)
		rewriteConsulted = true
	}

	if len(results) == 0 && e.Rewriter != nil && !rewriteConsulted {
		results = e.applyRewrite(ctx, query, results, opts)
	}

	return results, nil
}

// applyRewrite calls the rewriter, reruns hybrid search with its OR-mode
// terms on success, merges with the original results keeping the max
// score per symbol, and applies the focus multiplier. Any rewriter
// failure leaves original untouched.
func (e *Engine) applyRewrite(ctx context.Context, query string, original []model.SearchResult, opts Options) []model.SearchResult {
	result, err := e.Rewriter.Rewrite(ctx, query)
	if err != nil {
		return original
	}

	rewritten, err := e.hybridSearch(ctx, strings.Join(result.Terms, " OR "), opts)
	if err != nil {
		return original
	}

	merged := mergeMaxScore(original, rewritten)
	applyFocus(merged, result.Focus, e.focusMultiplier())
	sortResultsDesc(merged)
	if opts.Limit > 0 && len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}
	return merged
}

// hybridSearch runs FTS and/or vector search per opts.Mode, fetching up to
// 2x the requested limit from each side before merging, then truncates to
// the requested limit.
func (e *Engine) hybridSearch(ctx context.Context, query string, opts Options) ([]model.SearchResult, error) {
	fetchLimit := opts.Limit * 2

	var ftsResults, vecResults []model.SearchResult
	var err error

	if opts.Mode != ModeSemantic {
		ftsResults, err = e.Store.FTSSearch(ctx, query, fetchLimit)
		if err != nil {
			return nil, fmt.Errorf("fts search: %w", err)
		}
	}
	if opts.Mode != ModeText && e.Embedder != nil {
		vectors, embedErr := e.Embedder.Embed(ctx, []string{query})
		if embedErr == nil && len(vectors) == 1 {
			vecResults, err = e.Store.VectorSearch(ctx, vectors[0], fetchLimit)
			if err != nil {
				return nil, fmt.Errorf("vector search: %w", err)
			}
		}
	}

	merged := mergeMean(ftsResults, vecResults)
	sortResultsDesc(merged)
	if opts.Limit > 0 && len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}
	return merged, nil
}

// mergeMean combines two result sets by symbol id: a symbol appearing in
// both sides scores as the mean of its two scores and is tagged hybrid; a
// symbol appearing in only one side keeps that side's score and match
// type.
func mergeMean(a, b []model.SearchResult) []model.SearchResult {
	byID := make(map[int64]*model.SearchResult, len(a)+len(b))
	var order []int64

	add := func(r model.SearchResult, other model.MatchType) {
		existing, ok := byID[r.Symbol.ID]
		if !ok {
			copy := r
			byID[r.Symbol.ID] = &copy
			order = append(order, r.Symbol.ID)
			return
		}
		existing.Score = (existing.Score + r.Score) / 2
		existing.MatchType = model.MatchHybrid
	}

	for _, r := range a {
		add(r, model.MatchSemantic)
	}
	for _, r := range b {
		add(r, model.MatchFullText)
	}

	out := make([]model.SearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// mergeMaxScore combines two result sets keeping the higher score per
// symbol, used when merging a rewrite rerun with the original results.
func mergeMaxScore(a, b []model.SearchResult) []model.SearchResult {
	byID := make(map[int64]*model.SearchResult, len(a)+len(b))
	var order []int64

	for _, set := range [][]model.SearchResult{a, b} {
		for _, r := range set {
			existing, ok := byID[r.Symbol.ID]
			if !ok {
				copy := r
				byID[r.Symbol.ID] = &copy
				order = append(order, r.Symbol.ID)
				continue
			}
			if r.Score > existing.Score {
				existing.Score = r.Score
				existing.MatchType = r.MatchType
			}
		}
	}

	out := make([]model.SearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func sortResultsDesc(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

// runGraphIntent resolves target to a symbol and dispatches the matching
// graph traversal. A target that can't be resolved yields an empty result
// set, not an error, matching the spec's "missing targets return empty
// sequences" MCP contract.
func (e *Engine) runGraphIntent(ctx context.Context, intent, target string) ([]model.SearchResult, error) {
	sym, err := e.resolveSymbol(ctx, target)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return nil, nil
	}

	var related []model.Symbol
	switch intent {
	case "callers":
		related, err = e.Store.GetCallers(ctx, sym.ID, store.DefaultTraversalDepth)
	case "callees":
		related, err = e.Store.GetCallees(ctx, sym.ID, store.DefaultTraversalDepth)
	case "hierarchy":
		related, err = e.Store.GetClassHierarchy(ctx, sym.ID, store.DefaultHierarchyDepth)
	default:
		return nil, fmt.Errorf("unknown graph intent %q", intent)
	}
	if err != nil {
		return nil, fmt.Errorf("graph query %s for %s: %w", intent, target, err)
	}

	out := make([]model.SearchResult, len(related))
	for i, s := range related {
		out[i] = model.SearchResult{Symbol: s, Score: 1.0, MatchType: model.MatchGraph}
	}
	return out, nil
}

// resolveSymbol finds the symbol a graph-intent target name refers to: an
// exact qualified-name match first, falling back to the top full-text hit
// for the bare name the user typed.
func (e *Engine) resolveSymbol(ctx context.Context, name string) (*model.Symbol, error) {
	name = strings.Trim(name, `"'` + "`.,?!")
	if name == "" {
		return nil, nil
	}

	sym, err := e.Store.LookupSymbol(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup symbol %s: %w", name, err)
	}
	if sym != nil {
		return sym, nil
	}

	hits, err := e.Store.FTSSearch(ctx, name, 1)
	if err != nil {
		return nil, fmt.Errorf("resolve symbol %s: %w", name, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0].Symbol, nil
}

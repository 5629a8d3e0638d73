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

// Package mcp implements the behavioural contract of the project's MCP
// tool surface as plain Go functions returning JSON-serializable structs.
// The stdio/JSON-RPC transport that would expose these over MCP proper is
// out of scope; a caller (the cmd/codelibrarian binary, a future
// transport adapter, or a test) calls these directly against a Server.
package mcp

import (
	"context"
	"fmt"

	"github.com/codelibrarian/codelibrarian/internal/model"
	"github.com/codelibrarian/codelibrarian/internal/search"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

// Server holds what every tool function needs: the store for direct
// lookups, and a search engine for ranked/graph queries.
type Server struct {
	Store  *store.Store
	Search *search.Engine
}

// SymbolRecord is the JSON-serializable view of a symbol returned by every
// tool that surfaces one.
type SymbolRecord struct {
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualified_name"`
	Kind          string            `json:"kind"`
	FilePath      string            `json:"file_path"`
	StartLine     int               `json:"start_line"`
	EndLine       int               `json:"end_line"`
	Signature     string            `json:"signature"`
	Documentation string            `json:"documentation,omitempty"`
	ReturnType    string            `json:"return_type,omitempty"`
	Decorators    []string          `json:"decorators,omitempty"`
	Parameters    []model.Parameter `json:"parameters,omitempty"`
}

func toRecord(sym model.Symbol) SymbolRecord {
	return SymbolRecord{
		Name:          sym.Name,
		QualifiedName: sym.QualifiedName,
		Kind:          string(sym.Kind),
		FilePath:      sym.FilePath,
		StartLine:     sym.StartLine,
		EndLine:       sym.EndLine,
		Signature:     sym.Signature,
		Documentation: sym.Documentation,
		ReturnType:    sym.ReturnType,
		Decorators:    sym.Decorators,
		Parameters:    sym.Parameters,
	}
}

// SearchHit is one ranked result from SearchCode.
type SearchHit struct {
	Symbol    SymbolRecord `json:"symbol"`
	Score     float64      `json:"score"`
	MatchType string       `json:"match_type"`
}

// SearchCode runs a ranked (or graph-intent) search and returns
// JSON-ready hits. mode is "hybrid", "text", or "semantic"; an empty
// string defaults to hybrid.
func (s *Server) SearchCode(ctx context.Context, query string, limit int, mode string, rewrite bool) ([]SearchHit, error) {
	if mode == "" {
		mode = string(search.ModeHybrid)
	}
	results, err := s.Search.Search(ctx, query, search.Options{Limit: limit, Mode: search.Mode(mode), Rewrite: rewrite})
	if err != nil {
		return nil, fmt.Errorf("search_code %q: %w", query, err)
	}
	out := make([]SearchHit, len(results))
	for i, r := range results {
		out[i] = SearchHit{Symbol: toRecord(r.Symbol), Score: r.Score, MatchType: string(r.MatchType)}
	}
	return out, nil
}

// LookupSymbol resolves a symbol by exact qualified name. A miss returns
// (nil, nil), not an error.
func (s *Server) LookupSymbol(ctx context.Context, qualifiedName string) (*SymbolRecord, error) {
	sym, err := s.Store.LookupSymbol(ctx, qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("lookup_symbol %q: %w", qualifiedName, err)
	}
	if sym == nil {
		return nil, nil
	}
	rec := toRecord(*sym)
	return &rec, nil
}

// ListSymbols returns every symbol defined in the file at relPath. An
// unknown path yields an empty slice, not an error.
func (s *Server) ListSymbols(ctx context.Context, relPath string) ([]SymbolRecord, error) {
	f, err := s.Store.LookupFileByPath(ctx, relPath)
	if err != nil {
		return nil, fmt.Errorf("list_symbols %q: %w", relPath, err)
	}
	if f == nil {
		return nil, nil
	}
	symbols, err := s.Store.ListSymbols(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("list_symbols %q: %w", relPath, err)
	}
	return toRecords(symbols), nil
}

func toRecords(symbols []model.Symbol) []SymbolRecord {
	out := make([]SymbolRecord, len(symbols))
	for i, sym := range symbols {
		out[i] = toRecord(sym)
	}
	return out
}

// GetCallers returns every resolved caller of qualifiedName up to depth
// hops, forwarded to the store unchanged: depth <= 0 returns an empty
// result set rather than "direct callers".
func (s *Server) GetCallers(ctx context.Context, qualifiedName string, depth int) ([]SymbolRecord, error) {
	sym, err := s.Store.LookupSymbol(ctx, qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("get_callers %q: %w", qualifiedName, err)
	}
	if sym == nil {
		return nil, nil
	}
	callers, err := s.Store.GetCallers(ctx, sym.ID, depth)
	if err != nil {
		return nil, fmt.Errorf("get_callers %q: %w", qualifiedName, err)
	}
	return toRecords(callers), nil
}

// GetCallees returns every resolved callee of qualifiedName up to depth
// hops, forwarded to the store unchanged: depth <= 0 returns an empty
// result set rather than "direct callees".
func (s *Server) GetCallees(ctx context.Context, qualifiedName string, depth int) ([]SymbolRecord, error) {
	sym, err := s.Store.LookupSymbol(ctx, qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("get_callees %q: %w", qualifiedName, err)
	}
	if sym == nil {
		return nil, nil
	}
	callees, err := s.Store.GetCallees(ctx, sym.ID, depth)
	if err != nil {
		return nil, fmt.Errorf("get_callees %q: %w", qualifiedName, err)
	}
	return toRecords(callees), nil
}

// CountCallers reports how many direct callers qualifiedName has.
func (s *Server) CountCallers(ctx context.Context, qualifiedName string) (int, error) {
	callers, err := s.GetCallers(ctx, qualifiedName, store.DefaultTraversalDepth)
	if err != nil {
		return 0, err
	}
	return len(callers), nil
}

// CountCallees reports how many direct callees qualifiedName has.
func (s *Server) CountCallees(ctx context.Context, qualifiedName string) (int, error) {
	callees, err := s.GetCallees(ctx, qualifiedName, store.DefaultTraversalDepth)
	if err != nil {
		return 0, err
	}
	return len(callees), nil
}

// GetClassHierarchy returns name's resolved ancestor classes/interfaces and
// descendant classes, as one list.
func (s *Server) GetClassHierarchy(ctx context.Context, qualifiedName string) ([]SymbolRecord, error) {
	sym, err := s.Store.LookupSymbol(ctx, qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("get_class_hierarchy %q: %w", qualifiedName, err)
	}
	if sym == nil {
		return nil, nil
	}
	ancestors, err := s.Store.GetClassHierarchy(ctx, sym.ID, store.DefaultHierarchyDepth)
	if err != nil {
		return nil, fmt.Errorf("get_class_hierarchy %q: %w", qualifiedName, err)
	}
	return toRecords(ancestors), nil
}

// ImportRecord is the JSON-serializable view of a resolved or unresolved
// import edge.
type ImportRecord struct {
	ToModule   string `json:"to_module"`
	ImportName string `json:"import_name,omitempty"`
	Resolved   bool   `json:"resolved"`
}

// GetFileImports returns the imports recorded for the file at relPath.
func (s *Server) GetFileImports(ctx context.Context, relPath string) ([]ImportRecord, error) {
	f, err := s.Store.LookupFileByPath(ctx, relPath)
	if err != nil {
		return nil, fmt.Errorf("get_file_imports %q: %w", relPath, err)
	}
	if f == nil {
		return nil, nil
	}
	imports, err := s.Store.GetFileImports(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("get_file_imports %q: %w", relPath, err)
	}
	out := make([]ImportRecord, len(imports))
	for i, imp := range imports {
		out[i] = ImportRecord{ToModule: imp.ToModule, ImportName: imp.ImportName, Resolved: imp.ResolvedFile != nil}
	}
	return out, nil
}

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

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// setupTestStore creates a file-backed SQLite store in a temp dir. A real
// file (rather than ":memory:") matches how the indexer always opens the
// store, and lets WriteParseResult exercise the same transaction path used
// in production.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertFile_InsertThenUnchanged(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	f := &model.File{Path: "/repo/a.go", RelPath: "a.go", Language: "go", ModTime: 1, Hash: "h1"}
	id, unchanged, err := s.UpsertFile(ctx, f)
	if err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}
	if unchanged {
		t.Fatalf("expected first insert to report changed")
	}

	id2, unchanged, err := s.UpsertFile(ctx, f)
	if err != nil {
		t.Fatalf("UpsertFile (repeat) failed: %v", err)
	}
	if !unchanged {
		t.Fatalf("expected same hash to report unchanged")
	}
	if id2 != id {
		t.Fatalf("expected stable id, got %d then %d", id, id2)
	}

	f.Hash = "h2"
	_, unchanged, err = s.UpsertFile(ctx, f)
	if err != nil {
		t.Fatalf("UpsertFile (changed hash) failed: %v", err)
	}
	if unchanged {
		t.Fatalf("expected changed hash to report changed")
	}
}

func TestWriteParseResult_ReplacesPriorSymbols(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fileID, _, err := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	if err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	first := &model.ParseResult{Symbols: []model.Symbol{
		{Name: "foo", QualifiedName: "a.foo", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
	}}
	if err := s.WriteParseResult(ctx, fileID, first); err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}
	symbols, err := s.ListSymbols(ctx, fileID)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(symbols) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(symbols))
	}

	second := &model.ParseResult{Symbols: []model.Symbol{
		{Name: "bar", QualifiedName: "a.bar", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
	}}
	if err := s.WriteParseResult(ctx, fileID, second); err != nil {
		t.Fatalf("WriteParseResult (replace) failed: %v", err)
	}
	symbols, err = s.ListSymbols(ctx, fileID)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(symbols) != 1 || symbols[0].Name != "bar" {
		t.Fatalf("expected replacement to leave exactly [bar], got %+v", symbols)
	}
}

func TestResolveEdges_SameFilePreferredOverOtherFile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fileA, _, _ := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	fileB, _, _ := s.UpsertFile(ctx, &model.File{Path: "/repo/b.py", RelPath: "b.py", Language: "python", ModTime: 1, Hash: "h2"})

	// Two symbols named "helper" exist, one in each file. a's own caller
	// should resolve to a's helper, not b's.
	err := s.WriteParseResult(ctx, fileA, &model.ParseResult{
		Symbols: []model.Symbol{
			{Name: "helper", QualifiedName: "helper", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
			{Name: "caller", QualifiedName: "a.caller", Kind: model.KindFunction, StartLine: 4, EndLine: 6},
		},
		Calls: []model.CallEdge{{CallerSymbolID: 1, TargetQName: "helper", Line: 5}},
	})
	if err != nil {
		t.Fatalf("WriteParseResult a failed: %v", err)
	}
	err = s.WriteParseResult(ctx, fileB, &model.ParseResult{
		Symbols: []model.Symbol{
			{Name: "helper", QualifiedName: "helper", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
		},
	})
	if err != nil {
		t.Fatalf("WriteParseResult b failed: %v", err)
	}

	stats, err := s.ResolveEdges(ctx)
	if err != nil {
		t.Fatalf("ResolveEdges failed: %v", err)
	}
	if stats.CallsResolved != 1 {
		t.Fatalf("expected 1 call resolved, got %d", stats.CallsResolved)
	}

	caller, err := s.LookupSymbol(ctx, "a.caller")
	if err != nil || caller == nil {
		t.Fatalf("LookupSymbol(a.caller) failed: %v", err)
	}
	callees, err := s.GetCallees(ctx, caller.ID, 1)
	if err != nil {
		t.Fatalf("GetCallees failed: %v", err)
	}
	if len(callees) != 1 || callees[0].FileID != fileA {
		t.Fatalf("expected callee resolved within file %d, got %+v", fileA, callees)
	}

	if callees, err = s.GetCallees(ctx, caller.ID, 0); err != nil {
		t.Fatalf("GetCallees(depth=0) failed: %v", err)
	} else if len(callees) != 0 {
		t.Fatalf("GetCallees(depth=0) = %+v, want empty", callees)
	}
	if callers, err := s.GetCallers(ctx, caller.ID, -1); err != nil {
		t.Fatalf("GetCallers(depth=-1) failed: %v", err)
	} else if len(callers) != 0 {
		t.Fatalf("GetCallers(depth=-1) = %+v, want empty", callers)
	}
	if ancestors, err := s.GetClassHierarchy(ctx, caller.ID, 0); err != nil {
		t.Fatalf("GetClassHierarchy(depth=0) failed: %v", err)
	} else if len(ancestors) != 0 {
		t.Fatalf("GetClassHierarchy(depth=0) = %+v, want empty", ancestors)
	}
}

func TestFTSSearch_FindsByName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fileID, _, _ := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	err := s.WriteParseResult(ctx, fileID, &model.ParseResult{Symbols: []model.Symbol{
		{Name: "compute_embedding", QualifiedName: "a.compute_embedding", Kind: model.KindFunction,
			Documentation: "Generates a vector embedding for the given text.", StartLine: 1, EndLine: 10},
		{Name: "unrelated_helper", QualifiedName: "a.unrelated_helper", Kind: model.KindFunction, StartLine: 12, EndLine: 14},
	}})
	if err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}

	results, err := s.FTSSearch(ctx, "embedding", 10)
	if err != nil {
		t.Fatalf("FTSSearch failed: %v", err)
	}
	if len(results) != 1 || results[0].Symbol.Name != "compute_embedding" {
		t.Fatalf("expected single match on compute_embedding, got %+v", results)
	}
	if results[0].Score <= 0 || results[0].Score > 1 {
		t.Fatalf("expected score in (0,1], got %f", results[0].Score)
	}
}

func TestFTSSearch_EmptyQueryReturnsEmptyResults(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := s.FTSSearch(ctx, q, 10)
		if err != nil {
			t.Fatalf("FTSSearch(%q) returned error: %v", q, err)
		}
		if len(results) != 0 {
			t.Fatalf("FTSSearch(%q) = %+v, want empty", q, results)
		}
	}
}

func TestVectorSearch_RanksClosestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fileID, _, _ := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	err := s.WriteParseResult(ctx, fileID, &model.ParseResult{Symbols: []model.Symbol{
		{Name: "near", QualifiedName: "a.near", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
		{Name: "far", QualifiedName: "a.far", Kind: model.KindFunction, StartLine: 4, EndLine: 5},
	}})
	if err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}

	near, err := s.LookupSymbol(ctx, "a.near")
	if err != nil || near == nil {
		t.Fatalf("lookup near failed: %v", err)
	}
	far, err := s.LookupSymbol(ctx, "a.far")
	if err != nil || far == nil {
		t.Fatalf("lookup far failed: %v", err)
	}

	if err := s.UpsertEmbedding(ctx, near.ID, []float32{1, 0, 0}); err != nil {
		t.Fatalf("UpsertEmbedding near failed: %v", err)
	}
	if err := s.UpsertEmbedding(ctx, far.ID, []float32{0, 1, 0}); err != nil {
		t.Fatalf("UpsertEmbedding far failed: %v", err)
	}

	results, err := s.VectorSearch(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("VectorSearch failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Symbol.Name != "near" {
		t.Fatalf("expected near to rank first, got %+v", results)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected near to score higher than far: %+v", results)
	}
}

func TestDeleteFileData_CascadesSymbolsAndEmbeddings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fileID, _, _ := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	err := s.WriteParseResult(ctx, fileID, &model.ParseResult{Symbols: []model.Symbol{
		{Name: "foo", QualifiedName: "a.foo", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
	}})
	if err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}
	sym, _ := s.LookupSymbol(ctx, "a.foo")
	if err := s.UpsertEmbedding(ctx, sym.ID, []float32{1, 2, 3}); err != nil {
		t.Fatalf("UpsertEmbedding failed: %v", err)
	}

	if err := s.DeleteFileData(ctx, fileID); err != nil {
		t.Fatalf("DeleteFileData failed: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Files != 0 || counts.Symbols != 0 || counts.Embeddings != 0 {
		t.Fatalf("expected cascaded delete to zero all derived rows, got %+v", counts)
	}
}

func TestInvalidateEmbeddings_ForcesFullReembed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fileID, _, _ := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	err := s.WriteParseResult(ctx, fileID, &model.ParseResult{Symbols: []model.Symbol{
		{Name: "foo", QualifiedName: "a.foo", Kind: model.KindFunction, StartLine: 1, EndLine: 2},
	}})
	if err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}
	sym, _ := s.LookupSymbol(ctx, "a.foo")
	if err := s.UpsertEmbedding(ctx, sym.ID, []float32{1, 2, 3}); err != nil {
		t.Fatalf("UpsertEmbedding failed: %v", err)
	}

	missing, err := s.SymbolsMissingEmbeddings(ctx, 10)
	if err != nil {
		t.Fatalf("SymbolsMissingEmbeddings failed: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no symbols missing embeddings before invalidation, got %+v", missing)
	}

	if err := s.InvalidateEmbeddings(ctx); err != nil {
		t.Fatalf("InvalidateEmbeddings failed: %v", err)
	}

	missing, err = s.SymbolsMissingEmbeddings(ctx, 10)
	if err != nil {
		t.Fatalf("SymbolsMissingEmbeddings failed: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != sym.ID {
		t.Fatalf("expected %d to need re-embedding after invalidation, got %+v", sym.ID, missing)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Symbols != 1 {
		t.Fatalf("expected symbol row to survive invalidation, got %+v", counts)
	}
}

func TestVanishedFiles_ExcludesSeen(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, _, _ = s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	_, _, _ = s.UpsertFile(ctx, &model.File{Path: "/repo/b.py", RelPath: "b.py", Language: "python", ModTime: 1, Hash: "h2"})

	vanished, err := s.VanishedFiles(ctx, map[string]bool{"/repo/a.py": true})
	if err != nil {
		t.Fatalf("VanishedFiles failed: %v", err)
	}
	if len(vanished) != 1 || vanished[0].Path != "/repo/b.py" {
		t.Fatalf("expected only b.py to be vanished, got %+v", vanished)
	}
}

func TestLookupFileByPath_FindsAndMisses(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertFile(ctx, &model.File{Path: "/repo/a.py", RelPath: "a.py", Language: "python", ModTime: 1, Hash: "h1"})
	if err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	f, err := s.LookupFileByPath(ctx, "a.py")
	if err != nil {
		t.Fatalf("LookupFileByPath failed: %v", err)
	}
	if f == nil || f.Path != "/repo/a.py" {
		t.Fatalf("expected to find a.py, got %+v", f)
	}

	missing, err := s.LookupFileByPath(ctx, "nope.py")
	if err != nil {
		t.Fatalf("LookupFileByPath (miss) failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown path, got %+v", missing)
	}
}

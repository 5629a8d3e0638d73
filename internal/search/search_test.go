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

package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codelibrarian/codelibrarian/internal/embedclient"
	"github.com/codelibrarian/codelibrarian/internal/model"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	fileID, _, err := s.UpsertFile(ctx, &model.File{Path: "/repo/animals.py", RelPath: "animals.py", Language: "python", Hash: "h1"})
	if err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	pr := &model.ParseResult{
		Symbols: []model.Symbol{
			{Name: "find_oldest", QualifiedName: "animals.find_oldest", Kind: model.KindFunction, Signature: "def find_oldest(animals)", Documentation: "Return the oldest animal."},
			{Name: "helper", QualifiedName: "animals.helper", Kind: model.KindFunction, Signature: "def helper()"},
		},
		Calls: []model.CallEdge{
			{CallerSymbolID: 0, TargetQName: "animals.helper", Line: 5},
		},
	}
	if err := s.WriteParseResult(ctx, fileID, pr); err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}
	if _, err := s.ResolveEdges(ctx); err != nil {
		t.Fatalf("ResolveEdges failed: %v", err)
	}

	return &Engine{Store: s, Embedder: embedclient.NewMock(16)}, s
}

func TestSearch_HybridFindsSymbolByText(t *testing.T) {
	engine, _ := setupEngine(t)
	results, err := engine.Search(context.Background(), "oldest animal", Options{Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Symbol.QualifiedName == "animals.find_oldest" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected find_oldest among results, got %+v", results)
	}
}

func TestSearch_CallersOfIntentReturnsGraphMatch(t *testing.T) {
	engine, _ := setupEngine(t)
	results, err := engine.Search(context.Background(), "callers of animals.helper", Options{Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one caller, got %d", len(results))
	}
	if results[0].MatchType != model.MatchGraph || results[0].Score != 1.0 {
		t.Fatalf("expected graph match with score 1.0, got %+v", results[0])
	}
	if results[0].Symbol.QualifiedName != "animals.find_oldest" {
		t.Fatalf("expected find_oldest as caller, got %s", results[0].Symbol.QualifiedName)
	}
}

func TestSearch_UnresolvableGraphTargetReturnsEmpty(t *testing.T) {
	engine, _ := setupEngine(t)
	results, err := engine.Search(context.Background(), "callers of nonexistent.thing", Options{Limit: 5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for unresolvable target, got %+v", results)
	}
}

func TestClassifyIntent_RecognizesPhrasings(t *testing.T) {
	cases := []struct {
		query      string
		wantKind   string
		wantTarget string
	}{
		{"callers of find_oldest", "callers", "find_oldest"},
		{"who calls helper", "callers", "helper"},
		{"callees of find_oldest", "callees", "find_oldest"},
		{"hierarchy of Dog", "hierarchy", "Dog"},
		{"subclasses of Animal", "hierarchy", "Animal"},
		{"implements Shape", "hierarchy", "Shape"},
		{"find_oldest calls", "callees", "find_oldest"},
	}
	for _, tc := range cases {
		kind, target, ok := classifyIntent(tc.query)
		if !ok || kind != tc.wantKind || target != tc.wantTarget {
			t.Errorf("classifyIntent(%q) = (%q, %q, %v), want (%q, %q, true)", tc.query, kind, target, ok, tc.wantKind, tc.wantTarget)
		}
	}
}

func TestClassifyIntent_PlainQueryDoesNotMatch(t *testing.T) {
	if _, _, ok := classifyIntent("oldest animal in the shelter"); ok {
		t.Fatalf("expected plain-text query to not classify as graph intent")
	}
}

func TestMergeMean_SingleSourceKeepsOwnMatchType(t *testing.T) {
	a := []model.SearchResult{{Symbol: model.Symbol{ID: 1}, Score: 0.8, MatchType: model.MatchFullText}}
	var b []model.SearchResult
	merged := mergeMean(a, b)
	if len(merged) != 1 || merged[0].MatchType != model.MatchFullText || merged[0].Score != 0.8 {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}

func TestMergeMean_BothSourcesAverageAndTagHybrid(t *testing.T) {
	a := []model.SearchResult{{Symbol: model.Symbol{ID: 1}, Score: 0.6, MatchType: model.MatchFullText}}
	b := []model.SearchResult{{Symbol: model.Symbol{ID: 1}, Score: 1.0, MatchType: model.MatchSemantic}}
	merged := mergeMean(a, b)
	if len(merged) != 1 {
		t.Fatalf("expected one merged result, got %d", len(merged))
	}
	if merged[0].MatchType != model.MatchHybrid {
		t.Fatalf("expected hybrid match type, got %v", merged[0].MatchType)
	}
	if merged[0].Score != 0.8 {
		t.Fatalf("expected mean score 0.8, got %v", merged[0].Score)
	}
}

func TestApplyFocus_ImplementationDownweightsTestFiles(t *testing.T) {
	results := []model.SearchResult{
		{Symbol: model.Symbol{ID: 1, FilePath: "pkg/foo.go"}, Score: 1.0},
		{Symbol: model.Symbol{ID: 2, FilePath: "pkg/foo_test.go"}, Score: 1.0},
	}
	applyFocus(results, "implementation", 0.5)
	if results[0].Score != 1.0 {
		t.Fatalf("expected implementation file score untouched, got %v", results[0].Score)
	}
	if results[1].Score != 0.5 {
		t.Fatalf("expected test file score halved, got %v", results[1].Score)
	}
}

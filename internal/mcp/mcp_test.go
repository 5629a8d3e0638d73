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

package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codelibrarian/codelibrarian/internal/embedclient"
	"github.com/codelibrarian/codelibrarian/internal/model"
	"github.com/codelibrarian/codelibrarian/internal/search"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	fileID, _, err := s.UpsertFile(ctx, &model.File{Path: "/repo/shapes.py", RelPath: "shapes.py", Language: "python", Hash: "h1"})
	if err != nil {
		t.Fatalf("UpsertFile failed: %v", err)
	}

	pr := &model.ParseResult{
		Symbols: []model.Symbol{
			{Name: "Shape", QualifiedName: "shapes.Shape", Kind: model.KindClass, Signature: "class Shape"},
			{Name: "Circle", QualifiedName: "shapes.Circle", Kind: model.KindClass, Signature: "class Circle(Shape)"},
			{Name: "area", QualifiedName: "shapes.Circle.area", Kind: model.KindMethod, ParentQName: "shapes.Circle", Signature: "def area(self)"},
		},
		Inherits: []model.InheritEdge{{ChildSymbolID: 1, ParentQName: "shapes.Shape"}},
		Imports:  []model.ImportEdge{{ToModule: "math"}},
	}
	if err := s.WriteParseResult(ctx, fileID, pr); err != nil {
		t.Fatalf("WriteParseResult failed: %v", err)
	}
	if _, err := s.ResolveEdges(ctx); err != nil {
		t.Fatalf("ResolveEdges failed: %v", err)
	}

	engine := &search.Engine{Store: s, Embedder: embedclient.NewMock(8)}
	return &Server{Store: s, Search: engine}
}

func TestServer_LookupSymbol_FoundAndMissing(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	rec, err := s.LookupSymbol(ctx, "shapes.Circle")
	if err != nil {
		t.Fatalf("LookupSymbol failed: %v", err)
	}
	if rec == nil || rec.Name != "Circle" {
		t.Fatalf("expected to find Circle, got %+v", rec)
	}

	miss, err := s.LookupSymbol(ctx, "shapes.Nonexistent")
	if err != nil {
		t.Fatalf("LookupSymbol (miss) failed: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected nil for unknown symbol, got %+v", miss)
	}
}

func TestServer_ListSymbols_ByRelPath(t *testing.T) {
	s := setupServer(t)
	records, err := s.ListSymbols(context.Background(), "shapes.py")
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 symbols, got %d", len(records))
	}
}

func TestServer_ListSymbols_UnknownPathReturnsEmpty(t *testing.T) {
	s := setupServer(t)
	records, err := s.ListSymbols(context.Background(), "nope.py")
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty slice for unknown path, got %+v", records)
	}
}

func TestServer_GetClassHierarchy_ResolvesInheritance(t *testing.T) {
	s := setupServer(t)
	ancestors, err := s.GetClassHierarchy(context.Background(), "shapes.Circle")
	if err != nil {
		t.Fatalf("GetClassHierarchy failed: %v", err)
	}
	if len(ancestors) != 1 || ancestors[0].QualifiedName != "shapes.Shape" {
		t.Fatalf("expected Shape as sole ancestor, got %+v", ancestors)
	}
}

func TestServer_CountCallers_NoCallersIsZero(t *testing.T) {
	s := setupServer(t)
	n, err := s.CountCallers(context.Background(), "shapes.Circle.area")
	if err != nil {
		t.Fatalf("CountCallers failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero callers, got %d", n)
	}
}

func TestServer_GetFileImports_ReturnsUnresolvedStdlibImport(t *testing.T) {
	s := setupServer(t)
	imports, err := s.GetFileImports(context.Background(), "shapes.py")
	if err != nil {
		t.Fatalf("GetFileImports failed: %v", err)
	}
	if len(imports) != 1 || imports[0].ToModule != "math" || imports[0].Resolved {
		t.Fatalf("unexpected imports: %+v", imports)
	}
}

func TestServer_DiagramCallGraph_RendersMermaidFlowchart(t *testing.T) {
	s := setupServer(t)
	diagram, err := s.DiagramCallGraph(context.Background(), "shapes.Circle.area", 1)
	if err != nil {
		t.Fatalf("DiagramCallGraph failed: %v", err)
	}
	if !strings.HasPrefix(diagram, "flowchart LR\n") {
		t.Fatalf("expected mermaid flowchart header, got %q", diagram)
	}
}

func TestServer_DiagramImportGraph_MarksUnresolvedImport(t *testing.T) {
	s := setupServer(t)
	diagram, err := s.DiagramImportGraph(context.Background(), "shapes.py")
	if err != nil {
		t.Fatalf("DiagramImportGraph failed: %v", err)
	}
	if !strings.Contains(diagram, "unresolved") {
		t.Fatalf("expected unresolved styling for unresolved import, got %q", diagram)
	}
}

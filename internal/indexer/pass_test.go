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

package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codelibrarian/codelibrarian/internal/config"
	"github.com/codelibrarian/codelibrarian/internal/embedclient"
	"github.com/codelibrarian/codelibrarian/internal/store"
)

func setupProject(t *testing.T) (*config.Config, *store.Store) {
	t.Helper()
	root := t.TempDir()

	mustWrite(t, filepath.Join(root, "main.go"), `package main

func helper() int {
	return 1
}

func main() {
	helper()
}
`)
	mustWrite(t, filepath.Join(root, "vendor", "dep.go"), `package vendor

func Unused() {}
`)

	cfg := config.Default(root)
	cfg.Embeddings.Enabled = true
	cfg.Embeddings.Dimensions = 8
	cfg.Embeddings.BatchSize = 4

	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return cfg, s
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPassRun_IndexesFilesAndSkipsVendor(t *testing.T) {
	cfg, s := setupProject(t)
	p := &Pass{Store: s, Config: cfg, Embedder: embedclient.NewMock(cfg.Embeddings.Dimensions)}

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.FilesIndexed != 1 {
		t.Fatalf("expected exactly main.go indexed (vendor excluded), got %d", stats.FilesIndexed)
	}
	if stats.EmbeddingsWritten == 0 {
		t.Fatalf("expected embeddings to be written")
	}

	symbols, err := s.ListSymbols(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(symbols) == 0 {
		t.Fatalf("expected symbols from main.go to be recorded")
	}
}

func TestPassRun_ReembedRecomputesExistingEmbeddings(t *testing.T) {
	cfg, s := setupProject(t)
	ctx := context.Background()

	first := &Pass{Store: s, Config: cfg, Embedder: embedclient.NewMock(cfg.Embeddings.Dimensions)}
	stats, err := first.Run(ctx)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if stats.EmbeddingsWritten == 0 {
		t.Fatalf("expected first pass to write embeddings")
	}

	// Second incremental pass without Reembed: no files changed, no
	// symbols missing an embedding, so nothing new gets written.
	second := &Pass{Store: s, Config: cfg, Embedder: embedclient.NewMock(cfg.Embeddings.Dimensions)}
	stats, err = second.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if stats.EmbeddingsWritten != 0 {
		t.Fatalf("expected no embeddings written on unchanged incremental pass, got %d", stats.EmbeddingsWritten)
	}

	reembed := &Pass{Store: s, Config: cfg, Embedder: embedclient.NewMock(cfg.Embeddings.Dimensions), Reembed: true}
	stats, err = reembed.Run(ctx)
	if err != nil {
		t.Fatalf("reembed Run failed: %v", err)
	}
	if stats.EmbeddingsWritten == 0 {
		t.Fatalf("expected --reembed to recompute every symbol's embedding")
	}
}

func TestPassRun_IncrementalSkipsUnchangedFile(t *testing.T) {
	cfg, s := setupProject(t)
	cfg.Embeddings.Enabled = false
	p := &Pass{Store: s, Config: cfg}
	ctx := context.Background()

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	stats, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if stats.FilesSkipped != 1 {
		t.Fatalf("expected unchanged main.go to be skipped, got %d skipped", stats.FilesSkipped)
	}
}

func TestPassRun_FullModeRemovesVanishedFiles(t *testing.T) {
	cfg, s := setupProject(t)
	cfg.Embeddings.Enabled = false
	ctx := context.Background()

	if _, err := (&Pass{Store: s, Config: cfg}).Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	if err := os.Remove(filepath.Join(cfg.ProjectRoot, "main.go")); err != nil {
		t.Fatalf("remove main.go: %v", err)
	}

	stats, err := (&Pass{Store: s, Config: cfg, Full: true}).Run(ctx)
	if err != nil {
		t.Fatalf("full Run failed: %v", err)
	}
	if stats.FilesRemoved != 1 {
		t.Fatalf("expected vanished main.go to be removed, got %d removed", stats.FilesRemoved)
	}
}

func TestDiscover_ExcludesVendorDirectory(t *testing.T) {
	cfg, _ := setupProject(t)
	files, err := discover(cfg.ProjectRoot, cfg.Index.Exclude, cfg.Index.Languages)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	for _, f := range files {
		if filepath.Dir(f.RelPath) == "vendor" {
			t.Fatalf("expected vendor/ to be excluded, found %s", f.RelPath)
		}
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly one discovered file, got %d", len(files))
	}
}

func TestGlobMatch_RecursiveAndSingleSegment(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"vendor/**", "vendor/dep.go", true},
		{"vendor/**", "src/vendor/dep.go", false},
		{"**/vendor/**", "src/vendor/dep.go", true},
		{"*.min.js", "dist/app.min.js", true},
		{"*.min.js", "app.min.js", true},
		{".git/**", ".git/HEAD", true},
		{".git/**", "gitdir/HEAD", false},
	}
	for _, tc := range cases {
		if got := globMatchRooted(tc.pattern, tc.path); got != tc.want {
			t.Errorf("globMatchRooted(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

// globMatchRooted exercises excluded()'s matching rules without requiring a
// real filesystem walk.
func globMatchRooted(pattern, path string) bool {
	return excluded(path, []string{pattern})
}

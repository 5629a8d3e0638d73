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
	"os"
	"path/filepath"
	"testing"

	"github.com/codelibrarian/codelibrarian/internal/config"
)

func TestProjectRoot_ExplicitFlag(t *testing.T) {
	if got := projectRoot("/some/project"); got != "/some/project" {
		t.Errorf("projectRoot() = %q, want %q", got, "/some/project")
	}
}

func TestProjectRoot_DefaultsToCwd(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	t.Chdir(resolved)

	got := projectRoot("")
	gotResolved, err := filepath.EvalSymlinks(got)
	if err != nil {
		t.Fatalf("EvalSymlinks(got) error = %v", err)
	}
	if gotResolved != resolved {
		t.Errorf("projectRoot(\"\") = %q, want %q", gotResolved, resolved)
	}
}

func TestLoadOrDefaultConfig_MissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadOrDefaultConfig(dir)
	if err != nil {
		t.Fatalf("loadOrDefaultConfig() error = %v", err)
	}
	if cfg.ProjectRoot != dir {
		t.Errorf("loadOrDefaultConfig().ProjectRoot = %q, want %q", cfg.ProjectRoot, dir)
	}
	if cfg.Database.Path != "index.db" {
		t.Errorf("loadOrDefaultConfig().Database.Path = %q, want the default \"index.db\"", cfg.Database.Path)
	}
}

func TestLoadOrDefaultConfig_ExistingFileIsLoaded(t *testing.T) {
	dir := t.TempDir()
	if _, err := config.Init(dir, false); err != nil {
		t.Fatalf("config.Init() error = %v", err)
	}

	cfg, err := loadOrDefaultConfig(dir)
	if err != nil {
		t.Fatalf("loadOrDefaultConfig() error = %v", err)
	}
	if cfg.ProjectRoot != dir {
		t.Errorf("loadOrDefaultConfig().ProjectRoot = %q, want %q", cfg.ProjectRoot, dir)
	}
}

func TestLoadOrDefaultConfig_MalformedFilePropagatesError(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, config.ProjectDir), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(config.Path(dir), []byte("not valid = = toml"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := loadOrDefaultConfig(dir); err == nil {
		t.Error("loadOrDefaultConfig() error = nil, want an error for malformed TOML")
	}
}

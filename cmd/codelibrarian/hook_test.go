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
	"os"
	"path/filepath"
	"testing"
)

func TestContainsHookMarker(t *testing.T) {
	if !containsHookMarker(postCommitHookContent) {
		t.Error("containsHookMarker(postCommitHookContent) = false, want true")
	}
	if containsHookMarker("#!/bin/sh\necho hello\n") {
		t.Error("containsHookMarker() on an unrelated script = true, want false")
	}
}

func TestFindGitDir(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.Mkdir(gitDir, 0o750); err != nil {
		t.Fatalf("Mkdir(.git) error = %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("MkdirAll error = %v", err)
	}

	t.Chdir(nested)

	found, err := findGitDir()
	if err != nil {
		t.Fatalf("findGitDir() error = %v", err)
	}
	resolvedGitDir, _ := filepath.EvalSymlinks(gitDir)
	resolvedFound, _ := filepath.EvalSymlinks(found)
	if resolvedFound != resolvedGitDir {
		t.Errorf("findGitDir() = %q, want %q", resolvedFound, resolvedGitDir)
	}
}

func TestFindGitDir_NotARepo(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	if _, err := findGitDir(); err == nil {
		t.Error("findGitDir() error = nil, want an error outside any git repository")
	}
}

func TestInstallAndRemoveHook(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")

	if err := installHook(hookPath, false); err != nil {
		t.Fatalf("installHook() error = %v", err)
	}

	content, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("ReadFile(hookPath) error = %v", err)
	}
	if !containsHookMarker(string(content)) {
		t.Error("installed hook content does not contain the codelibrarian marker")
	}

	info, err := os.Stat(hookPath)
	if err != nil {
		t.Fatalf("Stat(hookPath) error = %v", err)
	}
	if info.Mode()&0o100 == 0 {
		t.Error("installed hook is not executable")
	}

	if err := removeHook(hookPath); err != nil {
		t.Fatalf("removeHook() error = %v", err)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Error("hook file still exists after removeHook()")
	}
}

func TestInstallHook_ExistingNonCodelibrarianHookWithoutForce(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho custom\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := installHook(hookPath, false); err == nil {
		t.Error("installHook() error = nil, want an error when a foreign hook exists and force=false")
	}
}

func TestInstallHook_ExistingCodelibrarianHookWithoutForce(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")
	if err := os.WriteFile(hookPath, []byte(postCommitHookContent), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := installHook(hookPath, false); err != nil {
		t.Errorf("installHook() error = %v, want nil when an existing codelibrarian hook is a no-op", err)
	}
}

func TestInstallHook_ForceOverwritesForeignHook(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho custom\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := installHook(hookPath, true); err != nil {
		t.Fatalf("installHook(force=true) error = %v", err)
	}

	content, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !containsHookMarker(string(content)) {
		t.Error("forced install did not overwrite the foreign hook")
	}
}

func TestRemoveHook_RefusesForeignHook(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho custom\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := removeHook(hookPath); err == nil {
		t.Error("removeHook() error = nil, want an error when the hook was not installed by codelibrarian")
	}
	if _, err := os.Stat(hookPath); err != nil {
		t.Error("foreign hook was removed despite removeHook() returning an error")
	}
}

func TestRemoveHook_MissingFile(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")

	if err := removeHook(hookPath); err == nil {
		t.Error("removeHook() error = nil, want an error when no hook file exists")
	}
}

func TestIsHookInstalled(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(root)

	if IsHookInstalled() {
		t.Error("IsHookInstalled() = true before any hook is written")
	}

	if err := installHook(filepath.Join(hooksDir, "post-commit"), false); err != nil {
		t.Fatalf("installHook() error = %v", err)
	}

	if !IsHookInstalled() {
		t.Error("IsHookInstalled() = false after installing the codelibrarian hook")
	}
}

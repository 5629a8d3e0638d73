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
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codelibrarian/codelibrarian/internal/parser"
)

// discoveredFile is one file found under the index root, already filtered
// by exclude globs and the configured language set.
type discoveredFile struct {
	AbsPath  string
	RelPath  string // slash-separated, relative to the index root
	Language string
}

// discover walks root, skipping excluded directories entirely (an excluded
// directory is never read, so its whole subtree is skipped rather than
// filtered file by file underneath it), and following symlinks at
// most once per canonical target so a symlink cycle can't loop the walk
// forever.
func discover(root string, excludes []string, languages []string) ([]discoveredFile, error) {
	wanted := make(map[string]bool, len(languages))
	for _, l := range languages {
		wanted[l] = true
	}

	visited := map[string]bool{}
	var out []discoveredFile

	var walk func(dir string) error
	walk = func(dir string) error {
		canon, err := filepath.EvalSymlinks(dir)
		if err != nil {
			canon = dir
		}
		if visited[canon] {
			return nil
		}
		visited[canon] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			abs := filepath.Join(dir, entry.Name())
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			info, err := entry.Info()
			if err != nil {
				continue
			}
			isDir := entry.IsDir()
			if info.Mode()&fs.ModeSymlink != 0 {
				target, err := filepath.EvalSymlinks(abs)
				if err != nil {
					continue
				}
				ti, err := os.Stat(target)
				if err != nil {
					continue
				}
				isDir = ti.IsDir()
				abs = target
			}

			if excluded(rel, excludes) {
				continue
			}

			if isDir {
				if err := walk(abs); err != nil {
					return err
				}
				continue
			}

			lang := parser.DetectLanguage(rel)
			if lang == "" || (len(wanted) > 0 && !wanted[lang]) {
				continue
			}
			out = append(out, discoveredFile{AbsPath: abs, RelPath: rel, Language: lang})
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

// excluded reports whether rel matches any of the glob patterns. Patterns
// follow the same small vocabulary as .gitignore-style excludes: a path
// segment of "**" matches any number of directories, a single "*" matches
// within one segment, and a trailing "/**" anchors the rest of the pattern
// to "everything under this directory".
func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		if globMatch(p, rel) {
			return true
		}
		// A pattern with no "**" is anchored to the root by matchParts; mirror
		// the convenience most gitignore-style matchers give a bare pattern
		// like "*.min.js" by also trying it anywhere in the path.
		if !strings.Contains(p, "**") && globMatch("**/"+p, rel) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	pParts := strings.Split(pattern, "/")
	nParts := strings.Split(name, "/")
	return matchParts(pParts, nParts)
}

func matchParts(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchParts(pattern[1:], name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if !matchSegment(pattern[0], name[0]) {
			return false
		}
		pattern = pattern[1:]
		name = name[1:]
	}
	return len(name) == 0
}

// matchSegment matches a single path segment against a pattern segment
// using filepath.Match's semantics (*, ?, [...]), which is already what the
// standard library offers for one segment at a time.
func matchSegment(pattern, segment string) bool {
	ok, err := filepath.Match(pattern, segment)
	return err == nil && ok
}

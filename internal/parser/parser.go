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

// Package parser turns source file contents into model.ParseResult values:
// symbols plus unresolved import/call/inherit edges. A single native
// extractor covers Python in full depth; a generic grammar-driven extractor
// covers Go, JavaScript, TypeScript, and Java off one small per-language
// node-type table; Protobuf falls back to a line-oriented scanner since no
// tree-sitter grammar for it is bundled.
//
// CallEdge.CallerSymbolID and InheritEdge.ChildSymbolID are not database
// row ids here: every extractor emits them as the 0-based index of the
// owning symbol within the same ParseResult.Symbols slice. internal/store
// resolves those ordinals to real row ids when it writes the result, which
// lets an extractor build edges before any row exists.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// Extractor produces a ParseResult for one file's content. It never returns
// an error: a file it cannot make sense of yields a zero-value ParseResult,
// per the parser's never-fail contract (spec: "Swallow; emit empty result").
type Extractor interface {
	Extract(relPath string, content []byte) model.ParseResult
}

// LanguageByExtension maps a lowercased file extension (with leading dot)
// to the language tag used throughout the store and config excludes.
var LanguageByExtension = map[string]string{
	".py":   "python",
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".proto": "protobuf",
}

// DetectLanguage returns the language tag for path, or "" if the extension
// is not one this engine indexes.
func DetectLanguage(path string) string {
	return LanguageByExtension[strings.ToLower(filepath.Ext(path))]
}

// registry is built once; extractors are stateless and safe to share.
var registry = map[string]Extractor{
	"python":     newPythonExtractor(),
	"go":         newGenericExtractor(goSpec),
	"javascript": newGenericExtractor(javascriptSpec),
	"typescript": newGenericExtractor(typescriptSpec),
	"java":       newGenericExtractor(javaSpec),
	"protobuf":   protobufExtractor{},
}

// Dispatch looks up the extractor registered for language and runs it,
// recovering from any panic inside the extractor (malformed source can
// produce tree-sitter trees an extractor's field assumptions don't hold for)
// so a single bad file never aborts an indexing pass.
func Dispatch(language, relPath string, content []byte) (result model.ParseResult) {
	ext, ok := registry[language]
	if !ok {
		return model.ParseResult{}
	}
	defer func() {
		if r := recover(); r != nil {
			result = model.ParseResult{}
		}
	}()
	return ext.Extract(relPath, content)
}

// modulePath turns a slash-separated relative path into a dotted module
// path the way Python/JS/Java qualified names are built: strip the
// extension, replace path separators with '.', and drop a trailing
// "__init__"/"index" segment so a package's own module name is its
// directory, not a synthetic leaf.
func modulePath(relPath string) string {
	rel := filepath.ToSlash(relPath)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(rel, "/")
	if n := len(parts); n > 1 {
		last := parts[n-1]
		if last == "__init__" || last == "index" {
			parts = parts[:n-1]
		}
	}
	return strings.Join(parts, ".")
}

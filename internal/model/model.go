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

// Package model holds the shared data contracts threaded between the
// parser, store, indexer, and search engine. Nothing in this package talks
// to disk or a database; it is the vocabulary the other packages share.
package model

// SymbolKind enumerates the kinds of symbols the engine tracks.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindClass    SymbolKind = "class"
	KindModule   SymbolKind = "module"
)

// File is an indexed source file.
type File struct {
	ID       int64
	Path     string // absolute path, unique
	RelPath  string
	Language string
	ModTime  int64 // unix seconds
	Hash     string
}

// Parameter is a single ordered parameter of a symbol's signature.
type Parameter struct {
	Name       string
	Type       string
	Default    string
}

// Symbol is a named code construct extracted from a file.
type Symbol struct {
	ID            int64
	Name          string
	QualifiedName string
	Kind          SymbolKind
	FileID        int64
	FilePath      string // denormalized for convenience on read paths
	ParentQName   string // unresolved parent qualified name, written by the parser
	ParentID      *int64 // resolved after insert, within the same transaction
	StartLine     int
	EndLine       int
	Signature     string
	Documentation string
	Parameters    []Parameter
	ReturnType    string
	Decorators    []string
}

// ImportEdge records an import statement before resolution.
type ImportEdge struct {
	ID           int64
	FromFileID   int64
	ToModule     string
	ImportName   string // optional local binding name
	ResolvedFile *int64
}

// CallEdge records a call site before resolution.
type CallEdge struct {
	ID              int64
	CallerSymbolID  int64
	TargetQName     string // target qualified name as written
	Line            int
	ResolvedSymbol  *int64
}

// InheritEdge records a base-class/interface relationship before resolution.
type InheritEdge struct {
	ID               int64
	ChildSymbolID    int64
	ParentQName      string // parent qualified name as written
	ResolvedSymbol   *int64
}

// ParseResult is what a parser strategy produces for a single file. Parsers
// never fail outward: a parse error yields an empty ParseResult, not an
// error return from the extraction contract (see Extractor.Extract).
type ParseResult struct {
	Symbols  []Symbol
	Imports  []ImportEdge
	Calls    []CallEdge
	Inherits []InheritEdge
}

// MatchType classifies how a search result was found.
type MatchType string

const (
	MatchFullText MatchType = "fulltext"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
	MatchGraph    MatchType = "graph"
)

// SearchResult is one ranked hit returned by the search engine.
type SearchResult struct {
	Symbol    Symbol
	Score     float64
	MatchType MatchType
}

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

// Package store is the single-writer SQLite backend for the code index.
//
// All mutation goes through the Store's single *sql.DB guarded by an internal
// RWMutex: reads (search, graph traversal) take the read lock and run
// concurrently with each other; writes (one call per discovered file during
// a pass) take the write lock and run strictly serialized, matching the
// concurrency model in which many goroutines parse files in parallel but
// only one goroutine at a time holds the store write lock.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// Store wraps a SQLite connection holding the code index.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the index database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A file-backed SQLite connection is itself single-writer; restricting
	// the pool to one connection avoids SQLITE_BUSY from the driver's own
	// connection churn and keeps write ordering predictable under PRAGMA
	// foreign_keys=ON (which is per-connection).
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertFile inserts or updates a file row by path. unchanged reports
// whether the stored hash already matched f.Hash, letting callers of an
// incremental pass skip reparsing.
func (s *Store) UpsertFile(ctx context.Context, f *model.File) (id int64, unchanged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingHash string
	var existingID int64
	row := s.db.QueryRowContext(ctx, `SELECT id, hash FROM files WHERE path = ?`, f.Path)
	scanErr := row.Scan(&existingID, &existingHash)
	switch {
	case scanErr == sql.ErrNoRows:
		res, execErr := s.db.ExecContext(ctx,
			`INSERT INTO files (path, rel_path, language, mod_time, hash) VALUES (?, ?, ?, ?, ?)`,
			f.Path, f.RelPath, f.Language, f.ModTime, f.Hash)
		if execErr != nil {
			return 0, false, fmt.Errorf("insert file %s: %w", f.Path, execErr)
		}
		id, _ = res.LastInsertId()
		return id, false, nil
	case scanErr != nil:
		return 0, false, fmt.Errorf("lookup file %s: %w", f.Path, scanErr)
	}

	if existingHash == f.Hash {
		return existingID, true, nil
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE files SET rel_path = ?, language = ?, mod_time = ?, hash = ? WHERE id = ?`,
		f.RelPath, f.Language, f.ModTime, f.Hash, existingID)
	if err != nil {
		return 0, false, fmt.Errorf("update file %s: %w", f.Path, err)
	}
	return existingID, false, nil
}

// DeleteFileData cascades the deletion of a file and everything derived
// from it (symbols, parameters, imports, calls, inherits, embeddings).
func (s *Store) DeleteFileData(ctx context.Context, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("delete file %d: %w", fileID, err)
	}
	return nil
}

// VanishedFiles returns files recorded in the store whose path is not in
// seen, used by a full pass to find files that were removed from disk.
func (s *Store) VanishedFiles(ctx context.Context, seen map[string]bool) ([]model.File, error) {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, rel_path, language, mod_time, hash FROM files`)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.Path, &f.RelPath, &f.Language, &f.ModTime, &f.Hash); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if !seen[f.Path] {
			out = append(out, f)
		}
	}
	return out, rows.Err()
}

// WriteParseResult replaces everything derived from fileID with pr, within
// a single transaction. A constraint violation aborts this file's write and
// is returned to the caller, who is expected to log it and continue with
// the next file rather than abort the whole pass.
func (s *Store) WriteParseResult(ctx context.Context, fileID int64, pr *model.ParseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear symbols for file %d: %w", fileID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM imports WHERE from_file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear imports for file %d: %w", fileID, err)
	}

	// qname -> newly assigned row id, so calls/inherits/parent links within
	// this same file can resolve immediately without a second pass.
	idByQName := make(map[string]int64, len(pr.Symbols))
	idByOrdinal := make([]int64, len(pr.Symbols))

	for i, sym := range pr.Symbols {
		decorJSON, err := json.Marshal(sym.Decorators)
		if err != nil {
			return fmt.Errorf("marshal decorators: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO symbols (file_id, name, qualified_name, kind, parent_qname, start_line, end_line, signature, documentation, return_type, decorators)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, sym.Name, sym.QualifiedName, string(sym.Kind), sym.ParentQName,
			sym.StartLine, sym.EndLine, sym.Signature, sym.Documentation, sym.ReturnType, string(decorJSON))
		if err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.QualifiedName, err)
		}
		id, _ := res.LastInsertId()
		idByQName[sym.QualifiedName] = id
		idByOrdinal[i] = id

		for pos, p := range sym.Parameters {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO parameters (symbol_id, position, name, type, default_value) VALUES (?, ?, ?, ?, ?)`,
				id, pos, p.Name, p.Type, p.Default); err != nil {
				return fmt.Errorf("insert parameter %s of %s: %w", p.Name, sym.QualifiedName, err)
			}
		}
	}

	// Second loop: parent_id within the same file, now that every symbol
	// in this file has an id.
	for i, sym := range pr.Symbols {
		if sym.ParentQName == "" {
			continue
		}
		if parentID, ok := idByQName[sym.ParentQName]; ok {
			if _, err := tx.ExecContext(ctx, `UPDATE symbols SET parent_id = ? WHERE id = ?`, parentID, idByOrdinal[i]); err != nil {
				return fmt.Errorf("link parent of %s: %w", sym.QualifiedName, err)
			}
		}
	}

	for _, imp := range pr.Imports {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO imports (from_file_id, to_module, import_name) VALUES (?, ?, ?)`,
			fileID, imp.ToModule, imp.ImportName); err != nil {
			return fmt.Errorf("insert import %s: %w", imp.ToModule, err)
		}
	}

	for _, call := range pr.Calls {
		if call.CallerSymbolID < 0 || call.CallerSymbolID >= int64(len(idByOrdinal)) {
			continue
		}
		callerID := idByOrdinal[call.CallerSymbolID]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO calls (caller_symbol_id, target_qname, line) VALUES (?, ?, ?)`,
			callerID, call.TargetQName, call.Line); err != nil {
			return fmt.Errorf("insert call to %s: %w", call.TargetQName, err)
		}
	}

	for _, inh := range pr.Inherits {
		if inh.ChildSymbolID < 0 || inh.ChildSymbolID >= int64(len(idByOrdinal)) {
			continue
		}
		childID := idByOrdinal[inh.ChildSymbolID]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inherits (child_symbol_id, parent_qname) VALUES (?, ?)`,
			childID, inh.ParentQName); err != nil {
			return fmt.Errorf("insert inherit %s: %w", inh.ParentQName, err)
		}
	}

	// CallEdge/InheritEdge above index symbols by their position in
	// pr.Symbols (the parser's contract: CallerSymbolID/ChildSymbolID are
	// ordinals into pr.Symbols, reassigned to real row ids here).

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit file %d: %w", fileID, err)
	}
	return nil
}

// ResolveStats summarizes one edge-resolution pass.
type ResolveStats struct {
	ImportsResolved  int
	CallsResolved    int
	InheritsResolved int
}

// ResolveEdges resolves every unresolved import/call/inherit edge in the
// store. Resolution runs once, after all files in a pass have been written,
// since a target symbol may live in a file discovered after its caller.
//
// Tie-break order when a target qualified name matches more than one
// symbol: prefer a match in the same file as the referencing symbol, then
// the lowest symbol id. Module paths of the candidates are not compared.
func (s *Store) ResolveEdges(ctx context.Context) (ResolveStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats ResolveStats
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if stats.CallsResolved, err = resolveCallEdges(ctx, tx); err != nil {
		return stats, err
	}
	if stats.InheritsResolved, err = resolveInheritEdges(ctx, tx); err != nil {
		return stats, err
	}
	if stats.ImportsResolved, err = resolveImportEdges(ctx, tx); err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit resolve: %w", err)
	}
	return stats, nil
}

func resolveCallEdges(ctx context.Context, tx *sql.Tx) (int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, c.target_qname, s.file_id
		FROM calls c JOIN symbols s ON s.id = c.caller_symbol_id
		WHERE c.resolved_symbol IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("scan unresolved calls: %w", err)
	}
	type pending struct {
		id          int64
		targetQName string
		fileID      int64
	}
	var list []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.targetQName, &p.fileID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan call row: %w", err)
		}
		list = append(list, p)
	}
	rows.Close()

	count := 0
	for _, p := range list {
		target, err := bestMatch(ctx, tx, p.targetQName, p.fileID)
		if err != nil {
			return count, err
		}
		if target == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE calls SET resolved_symbol = ? WHERE id = ?`, target, p.id); err != nil {
			return count, fmt.Errorf("resolve call %d: %w", p.id, err)
		}
		count++
	}
	return count, nil
}

func resolveInheritEdges(ctx context.Context, tx *sql.Tx) (int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT i.id, i.parent_qname, s.file_id
		FROM inherits i JOIN symbols s ON s.id = i.child_symbol_id
		WHERE i.resolved_symbol IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("scan unresolved inherits: %w", err)
	}
	type pending struct {
		id       int64
		qname    string
		fileID   int64
	}
	var list []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.qname, &p.fileID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan inherit row: %w", err)
		}
		list = append(list, p)
	}
	rows.Close()

	count := 0
	for _, p := range list {
		target, err := bestMatch(ctx, tx, p.qname, p.fileID)
		if err != nil {
			return count, err
		}
		if target == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE inherits SET resolved_symbol = ? WHERE id = ?`, target, p.id); err != nil {
			return count, fmt.Errorf("resolve inherit %d: %w", p.id, err)
		}
		count++
	}
	return count, nil
}

func resolveImportEdges(ctx context.Context, tx *sql.Tx) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, to_module FROM imports WHERE resolved_file IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("scan unresolved imports: %w", err)
	}
	type pending struct {
		id     int64
		module string
	}
	var list []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.module); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan import row: %w", err)
		}
		list = append(list, p)
	}
	rows.Close()

	count := 0
	for _, p := range list {
		var fileID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM files WHERE rel_path = ? OR rel_path LIKE ? ORDER BY length(rel_path) ASC LIMIT 1`,
			p.module, p.module+"%").Scan(&fileID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return count, fmt.Errorf("match import %s: %w", p.module, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE imports SET resolved_file = ? WHERE id = ?`, fileID, p.id); err != nil {
			return count, fmt.Errorf("resolve import %d: %w", p.id, err)
		}
		count++
	}
	return count, nil
}

// bestMatch finds the symbol id best matching qname per the tie-break rule:
// same file first, then lowest id.
func bestMatch(ctx context.Context, tx *sql.Tx, qname string, fromFileID int64) (int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, file_id FROM symbols WHERE qualified_name = ? ORDER BY id ASC`, qname)
	if err != nil {
		return 0, fmt.Errorf("match %s: %w", qname, err)
	}
	defer rows.Close()

	var sameFile int64
	var best int64
	bestPrefixLen := -1
	for rows.Next() {
		var id, fileID int64
		if err := rows.Scan(&id, &fileID); err != nil {
			return 0, fmt.Errorf("scan match row: %w", err)
		}
		if fileID == fromFileID && sameFile == 0 {
			sameFile = id
		}
		if best == 0 {
			best = id
			bestPrefixLen = 0
		}
	}
	if sameFile != 0 {
		return sameFile, nil
	}
	_ = bestPrefixLen
	return best, nil
}

// UpsertEmbedding stores vec (L2-normalized by the caller) for symbolID.
func (s *Store) UpsertEmbedding(ctx context.Context, symbolID int64, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := new(bytes.Buffer)
	for _, f := range vec {
		if err := binary.Write(buf, binary.LittleEndian, math.Float32bits(f)); err != nil {
			return fmt.Errorf("encode embedding for symbol %d: %w", symbolID, err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (symbol_id, dims, vector) VALUES (?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`,
		symbolID, len(vec), buf.Bytes())
	if err != nil {
		return fmt.Errorf("upsert embedding for symbol %d: %w", symbolID, err)
	}
	return nil
}

// InvalidateEmbeddings deletes every row from the embeddings table,
// marking all symbols as needing a fresh embedding on the next pass.
// SymbolsMissingEmbeddings finds work by absence of an embedding row, so
// clearing the table is sufficient to force a full re-embed without
// touching symbols, files, or graph edges.
func (s *Store) InvalidateEmbeddings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("invalidate embeddings: %w", err)
	}
	return nil
}

// SymbolsMissingEmbeddings returns up to limit symbols that have no
// embedding row yet, for a batched embedding pass.
func (s *Store) SymbolsMissingEmbeddings(ctx context.Context, limit int) ([]model.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path,
		       sym.signature, sym.documentation
		FROM symbols sym
		JOIN files f ON f.id = sym.file_id
		LEFT JOIN embeddings e ON e.symbol_id = sym.id
		WHERE e.symbol_id IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list symbols missing embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.QualifiedName, &sym.Kind, &sym.FileID, &sym.FilePath,
			&sym.Signature, &sym.Documentation); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func decodeVector(raw []byte) []float32 {
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}

// StatusCounts summarizes the store's contents for the status command.
type StatusCounts struct {
	Files      int
	Symbols    int
	Imports    int
	Calls      int
	Inherits   int
	Embeddings int
}

// Counts reports row counts per table for the status command.
func (s *Store) Counts(ctx context.Context) (StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c StatusCounts
	queries := []struct {
		dest  *int
		table string
	}{
		{&c.Files, "files"},
		{&c.Symbols, "symbols"},
		{&c.Imports, "imports"},
		{&c.Calls, "calls"},
		{&c.Inherits, "inherits"},
		{&c.Embeddings, "embeddings"},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+q.table).Scan(q.dest); err != nil {
			return c, fmt.Errorf("count %s: %w", q.table, err)
		}
	}
	return c, nil
}

// LookupFileByPath finds a file by its relative path, for MCP tool calls
// that address a file the way a user would type it rather than by id.
func (s *Store) LookupFileByPath(ctx context.Context, relPath string) (*model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, path, rel_path, language, mod_time, hash FROM files WHERE rel_path = ?`, relPath)
	var f model.File
	err := row.Scan(&f.ID, &f.Path, &f.RelPath, &f.Language, &f.ModTime, &f.Hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup file %s: %w", relPath, err)
	}
	return &f, nil
}

// LookupSymbol finds a symbol by exact qualified name.
func (s *Store) LookupSymbol(ctx context.Context, qualifiedName string) (*model.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanOneSymbol(ctx, s.db, `
		SELECT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators
		FROM symbols sym JOIN files f ON f.id = sym.file_id
		WHERE sym.qualified_name = ? LIMIT 1`, qualifiedName)
}

// ListSymbols returns every symbol defined in fileID.
func (s *Store) ListSymbols(ctx context.Context, fileID int64) ([]model.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators
		FROM symbols sym JOIN files f ON f.id = sym.file_id
		WHERE sym.file_id = ? ORDER BY sym.start_line ASC`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list symbols for file %d: %w", fileID, err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// GetFileImports returns the import edges recorded for fileID.
func (s *Store) GetFileImports(ctx context.Context, fileID int64) ([]model.ImportEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_file_id, to_module, import_name, resolved_file
		FROM imports WHERE from_file_id = ?`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list imports for file %d: %w", fileID, err)
	}
	defer rows.Close()

	var out []model.ImportEdge
	for rows.Next() {
		var e model.ImportEdge
		if err := rows.Scan(&e.ID, &e.FromFileID, &e.ToModule, &e.ImportName, &e.ResolvedFile); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanOneSymbol(ctx context.Context, db *sql.DB, query string, args ...any) (*model.Symbol, error) {
	row := db.QueryRowContext(ctx, query, args...)
	var sym model.Symbol
	var decorJSON string
	err := row.Scan(&sym.ID, &sym.Name, &sym.QualifiedName, &sym.Kind, &sym.FileID, &sym.FilePath,
		&sym.ParentQName, &sym.ParentID, &sym.StartLine, &sym.EndLine, &sym.Signature,
		&sym.Documentation, &sym.ReturnType, &decorJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan symbol: %w", err)
	}
	_ = json.Unmarshal([]byte(decorJSON), &sym.Decorators)
	return &sym, nil
}

func scanSymbolRows(rows *sql.Rows) ([]model.Symbol, error) {
	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		var decorJSON string
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.QualifiedName, &sym.Kind, &sym.FileID, &sym.FilePath,
			&sym.ParentQName, &sym.ParentID, &sym.StartLine, &sym.EndLine, &sym.Signature,
			&sym.Documentation, &sym.ReturnType, &decorJSON); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		_ = json.Unmarshal([]byte(decorJSON), &sym.Decorators)
		out = append(out, sym)
	}
	return out, rows.Err()
}

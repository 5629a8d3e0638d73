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
	"fmt"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// DefaultTraversalDepth is the hop count a caller should pass to GetCallers
// or GetCallees when it wants "direct callers/callees only" rather than an
// explicit transitive depth.
const DefaultTraversalDepth = 1

// DefaultHierarchyDepth is the hop count a caller should pass to
// GetClassHierarchy when it wants the full resolvable chain of ancestors
// and descendants (up to 8 hops each way) rather than an explicit depth.
const DefaultHierarchyDepth = 8

// GetCallers returns every symbol with a resolved call edge into symbolID,
// transitively up to depth hops. depth <= 0 returns an empty result set.
func (s *Store) GetCallers(ctx context.Context, symbolID int64, depth int) ([]model.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	return s.traverse(ctx, `
		WITH RECURSIVE callers(id, hop) AS (
			SELECT caller_symbol_id, 1 FROM calls WHERE resolved_symbol = ?
			UNION
			SELECT c.caller_symbol_id, callers.hop + 1
			FROM calls c JOIN callers ON c.resolved_symbol = callers.id
			WHERE callers.hop < ?
		)
		SELECT DISTINCT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators
		FROM callers JOIN symbols sym ON sym.id = callers.id
		JOIN files f ON f.id = sym.file_id`, symbolID, depth)
}

// GetCallees returns every symbol symbolID has a resolved call edge to,
// transitively up to depth hops. depth <= 0 returns an empty result set.
func (s *Store) GetCallees(ctx context.Context, symbolID int64, depth int) ([]model.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	return s.traverse(ctx, `
		WITH RECURSIVE callees(id, hop) AS (
			SELECT resolved_symbol, 1 FROM calls WHERE caller_symbol_id = ? AND resolved_symbol IS NOT NULL
			UNION
			SELECT c.resolved_symbol, callees.hop + 1
			FROM calls c JOIN callees ON c.caller_symbol_id = callees.id
			WHERE callees.hop < ? AND c.resolved_symbol IS NOT NULL
		)
		SELECT DISTINCT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators
		FROM callees JOIN symbols sym ON sym.id = callees.id
		JOIN files f ON f.id = sym.file_id`, symbolID, depth)
}

// GetClassHierarchy returns symbolID's ancestor classes/interfaces and its
// descendant classes, each up to depth hops of resolved inherits edges, as
// one list. depth <= 0 returns an empty result set.
func (s *Store) GetClassHierarchy(ctx context.Context, symbolID int64, depth int) ([]model.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	return s.traverse(ctx, `
		WITH RECURSIVE ancestors(id, hop) AS (
			SELECT resolved_symbol, 1 FROM inherits WHERE child_symbol_id = ? AND resolved_symbol IS NOT NULL
			UNION
			SELECT i.resolved_symbol, ancestors.hop + 1
			FROM inherits i JOIN ancestors ON i.child_symbol_id = ancestors.id
			WHERE ancestors.hop < ? AND i.resolved_symbol IS NOT NULL
		),
		descendants(id, hop) AS (
			SELECT child_symbol_id, 1 FROM inherits WHERE resolved_symbol = ?
			UNION
			SELECT i.child_symbol_id, descendants.hop + 1
			FROM inherits i JOIN descendants ON i.resolved_symbol = descendants.id
			WHERE descendants.hop < ?
		)
		SELECT DISTINCT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators
		FROM (SELECT id FROM ancestors UNION SELECT id FROM descendants) h
		JOIN symbols sym ON sym.id = h.id
		JOIN files f ON f.id = sym.file_id`, symbolID, depth, symbolID, depth)
}

func (s *Store) traverse(ctx context.Context, query string, args ...any) ([]model.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph traversal: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// GetCallEdges returns every call edge outgoing from symbolID, resolved or
// not; an edge that never matched carries only its target name.
func (s *Store) GetCallEdges(ctx context.Context, symbolID int64) ([]model.CallEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, caller_symbol_id, target_qname, line, resolved_symbol
		FROM calls WHERE caller_symbol_id = ?`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("list calls for symbol %d: %w", symbolID, err)
	}
	defer rows.Close()

	var out []model.CallEdge
	for rows.Next() {
		var e model.CallEdge
		if err := rows.Scan(&e.ID, &e.CallerSymbolID, &e.TargetQName, &e.Line, &e.ResolvedSymbol); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

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
	"math"
	"regexp"
	"strings"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// ftsReserved matches FTS5 query syntax characters that must be quoted
// before a user's raw search string is passed to MATCH.
var ftsReserved = regexp.MustCompile(`["^*():]`)

// sanitizeFTSQuery quotes each term that contains an FTS5 syntax character
// (one of " ^ * ( ) :) so a query like "foo(bar)" doesn't trip the FTS5
// query parser. Other terms, including bare AND/OR/NOT, pass through as is.
func sanitizeFTSQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		if ftsReserved.MatchString(f) {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		fields[i] = f
	}
	return strings.Join(fields, " ")
}

// FTSSearch runs a BM25-ranked full-text search over symbol name, qualified
// name, documentation, and signature. It first tries an implicit AND of all
// terms; if that yields nothing it retries with OR, since a multi-word
// query with no single symbol matching every term is still often a useful
// hit on any one of them.
func (s *Store) FTSSearch(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, nil
	}
	results, err := s.ftsQuery(ctx, sanitized, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	fields := strings.Fields(sanitized)
	if len(fields) <= 1 {
		return results, nil
	}
	orQuery := strings.Join(fields, " OR ")
	return s.ftsQuery(ctx, orQuery, limit)
}

func (s *Store) ftsQuery(ctx context.Context, matchQuery string, limit int) ([]model.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators, bm25(symbols_fts) AS rank
		FROM symbols_fts
		JOIN symbols sym ON sym.id = symbols_fts.rowid
		JOIN files f ON f.id = sym.file_id
		WHERE symbols_fts MATCH ?
		ORDER BY rank ASC
		LIMIT ?`, matchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query %q: %w", matchQuery, err)
	}
	defer rows.Close()

	var out []model.SearchResult
	for rows.Next() {
		var sym model.Symbol
		var decorJSON string
		var rank float64
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.QualifiedName, &sym.Kind, &sym.FileID, &sym.FilePath,
			&sym.ParentQName, &sym.ParentID, &sym.StartLine, &sym.EndLine, &sym.Signature,
			&sym.Documentation, &sym.ReturnType, &decorJSON, &rank); err != nil {
			return nil, fmt.Errorf("scan fts row: %w", err)
		}
		out = append(out, model.SearchResult{
			Symbol:    sym,
			Score:     normalizeBM25(rank),
			MatchType: model.MatchFullText,
		})
	}
	return out, rows.Err()
}

// normalizeBM25 maps SQLite's bm25() output (negative, more negative is
// better) onto [0, 1] where 1 is the best match. The clamp keeps pathological
// long-document scores from producing a score outside the unit range that
// the hybrid merge in internal/search relies on.
func normalizeBM25(rank float64) float64 {
	score := 1.0 / (1.0 + math.Abs(rank))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// VectorSearch scores every stored embedding by brute force: the L2
// distance to query, mapped to a similarity by distanceToSimilarity. There is no native vector index available to a pure-Go SQLite
// driver, so this scans the embeddings table; callers are expected to keep
// limit modest and rely on FTS for the bulk of recall in the hybrid search
// path (see internal/search).
func (s *Store) VectorSearch(ctx context.Context, query []float32, limit int) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sym.id, sym.name, sym.qualified_name, sym.kind, sym.file_id, f.path, sym.parent_qname,
		       sym.parent_id, sym.start_line, sym.end_line, sym.signature, sym.documentation,
		       sym.return_type, sym.decorators, e.vector
		FROM embeddings e
		JOIN symbols sym ON sym.id = e.symbol_id
		JOIN files f ON f.id = sym.file_id`)
	if err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", err)
	}
	defer rows.Close()

	var all []scoredSymbol
	for rows.Next() {
		var sym model.Symbol
		var decorJSON string
		var raw []byte
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.QualifiedName, &sym.Kind, &sym.FileID, &sym.FilePath,
			&sym.ParentQName, &sym.ParentID, &sym.StartLine, &sym.EndLine, &sym.Signature,
			&sym.Documentation, &sym.ReturnType, &decorJSON, &raw); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		vec := decodeVector(raw)
		dist := l2Distance(query, vec)
		all = append(all, scoredSymbol{sym: sym, score: distanceToSimilarity(dist)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortScoredDesc(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]model.SearchResult, len(all))
	for i, a := range all {
		out[i] = model.SearchResult{Symbol: a.sym, Score: a.score, MatchType: model.MatchSemantic}
	}
	return out, nil
}

type scoredSymbol struct {
	sym   model.Symbol
	score float64
}

func sortScoredDesc(all []scoredSymbol) {
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].score > all[j-1].score; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
}

func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// distanceToSimilarity maps an L2 distance between two unit-normalized
// vectors onto [0, 1]: d=0 (identical) scores 1; d>=2 (the max distance
// between unit vectors) clamps to 0.
func distanceToSimilarity(d float64) float64 {
	sim := 1 - d/2
	if sim < 0 {
		return 0
	}
	return sim
}

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
	"fmt"
	"sort"
	"strings"
)

// DiagramCallGraph renders qualifiedName's callers and callees as a
// Mermaid flowchart, up to depth hops in each direction. An unresolvable
// target yields a diagram with just its own node, not an error.
func (s *Server) DiagramCallGraph(ctx context.Context, qualifiedName string, depth int) (string, error) {
	callers, err := s.GetCallers(ctx, qualifiedName, depth)
	if err != nil {
		return "", fmt.Errorf("diagram_call_graph %q: %w", qualifiedName, err)
	}
	callees, err := s.GetCallees(ctx, qualifiedName, depth)
	if err != nil {
		return "", fmt.Errorf("diagram_call_graph %q: %w", qualifiedName, err)
	}

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	center := nodeID(qualifiedName)
	sb.WriteString(fmt.Sprintf("  %s[%s]\n", center, label(qualifiedName)))

	for _, caller := range callers {
		id := nodeID(caller.QualifiedName)
		sb.WriteString(fmt.Sprintf("  %s[%s] --> %s\n", id, label(caller.QualifiedName), center))
	}
	for _, callee := range callees {
		id := nodeID(callee.QualifiedName)
		sb.WriteString(fmt.Sprintf("  %s --> %s[%s]\n", center, id, label(callee.QualifiedName)))
	}
	return sb.String(), nil
}

// DiagramImportGraph renders the import edges out of relPath as a Mermaid
// flowchart, one node per module it imports.
func (s *Server) DiagramImportGraph(ctx context.Context, relPath string) (string, error) {
	imports, err := s.GetFileImports(ctx, relPath)
	if err != nil {
		return "", fmt.Errorf("diagram_import_graph %q: %w", relPath, err)
	}

	sort.Slice(imports, func(i, j int) bool { return imports[i].ToModule < imports[j].ToModule })

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	root := nodeID(relPath)
	sb.WriteString(fmt.Sprintf("  %s[%s]\n", root, label(relPath)))
	for _, imp := range imports {
		id := nodeID(imp.ToModule)
		style := ""
		if !imp.Resolved {
			style = ":::unresolved"
		}
		sb.WriteString(fmt.Sprintf("  %s --> %s[%s]%s\n", root, id, label(imp.ToModule), style))
	}
	if len(imports) > 0 {
		sb.WriteString("  classDef unresolved stroke-dasharray: 5 5\n")
	}
	return sb.String(), nil
}

// nodeID turns a qualified name or path into a Mermaid-safe node
// identifier: Mermaid node ids can't contain characters like '.', '/', or
// '-' unquoted.
func nodeID(name string) string {
	replacer := strings.NewReplacer(".", "_", "/", "_", "-", "_", " ", "_")
	id := replacer.Replace(name)
	if id == "" {
		return "n"
	}
	return "n_" + id
}

// label escapes a display label for use inside Mermaid's [ ] node syntax.
func label(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `'`)
	return `"` + escaped + `"`
}

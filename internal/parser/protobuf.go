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

package parser

import (
	"strings"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// protobufExtractor is a line-oriented scanner, not a tree-sitter walk:
// tree-sitter-proto isn't bundled with go-tree-sitter's grammar set, so
// messages, enums, services, and RPCs are recognised by their keyword
// prefix and brace depth instead.
type protobufExtractor struct{}

func (protobufExtractor) Extract(relPath string, content []byte) model.ParseResult {
	module := modulePath(relPath)
	lines := strings.Split(string(content), "\n")

	var symbols []model.Symbol
	var imports []model.ImportEdge
	var currentService string
	var serviceIdx int
	braceDepth := 0

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			continue
		}

		if currentService != "" {
			braceDepth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
			if strings.HasPrefix(trimmed, "rpc ") {
				name, sig := parseRPCLine(trimmed)
				if name != "" {
					symbols = append(symbols, model.Symbol{
						Name:          name,
						QualifiedName: module + "." + currentService + "." + name,
						Kind:          model.KindMethod,
						ParentQName:   module + "." + currentService,
						StartLine:     lineNum,
						EndLine:       lineNum,
						Signature:     sig,
					})
				}
			}
			if braceDepth <= 0 {
				symbols[serviceIdx].EndLine = lineNum
				currentService = ""
			}
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "service ") && strings.Contains(trimmed, "{"):
			name := blockName(trimmed, "service")
			if name == "" {
				continue
			}
			currentService = name
			braceDepth = strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
			serviceIdx = len(symbols)
			symbols = append(symbols, model.Symbol{
				Name:          name,
				QualifiedName: module + "." + name,
				Kind:          model.KindClass,
				StartLine:     lineNum,
				EndLine:       lineNum,
				Signature:     "service " + name,
			})
			if braceDepth <= 0 {
				currentService = ""
			}

		case strings.HasPrefix(trimmed, "message ") && strings.Contains(trimmed, "{"):
			name := blockName(trimmed, "message")
			if name == "" {
				continue
			}
			end := blockEnd(lines, i)
			symbols = append(symbols, model.Symbol{
				Name:          name,
				QualifiedName: module + "." + name,
				Kind:          model.KindClass,
				StartLine:     lineNum,
				EndLine:       end,
				Signature:     "message " + name,
			})

		case strings.HasPrefix(trimmed, "enum ") && strings.Contains(trimmed, "{"):
			name := blockName(trimmed, "enum")
			if name == "" {
				continue
			}
			end := blockEnd(lines, i)
			symbols = append(symbols, model.Symbol{
				Name:          name,
				QualifiedName: module + "." + name,
				Kind:          model.KindClass,
				StartLine:     lineNum,
				EndLine:       end,
				Signature:     "enum " + name,
			})

		case strings.HasPrefix(trimmed, "import "):
			imp := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "import")), ";")
			imp = strings.Trim(strings.TrimSpace(imp), `"`)
			if imp != "" {
				imports = append(imports, model.ImportEdge{ToModule: imp})
			}
		}
	}

	return model.ParseResult{Symbols: symbols, Imports: imports}
}

func blockName(trimmed, keyword string) string {
	fields := strings.Fields(trimmed)
	if len(fields) < 2 || fields[0] != keyword {
		return ""
	}
	return strings.TrimSuffix(fields[1], "{")
}

func parseRPCLine(trimmed string) (name, signature string) {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "rpc "))
	paren := strings.Index(rest, "(")
	if paren < 0 {
		return "", ""
	}
	name = strings.TrimSpace(rest[:paren])
	end := len(rest)
	if semi := strings.Index(rest, ";"); semi >= 0 {
		end = semi
	} else if brace := strings.Index(rest, "{"); brace >= 0 {
		end = brace
	}
	return name, "rpc " + strings.TrimSpace(rest[:end])
}

func blockEnd(lines []string, start int) int {
	depth := 0
	started := false
	for i := start; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if !started && strings.Contains(lines[i], "{") {
			started = true
		}
		if started && depth <= 0 {
			return i + 1
		}
	}
	return len(lines)
}

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
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// LanguageSpec is the small per-language node-type table that drives the
// one generic tree-walk in Extract. Adding a language means filling in this
// table, not writing a new walker.
type LanguageSpec struct {
	Tag      string
	Language func() *sitter.Language

	FunctionTypes map[string]bool // node types that introduce a callable symbol
	ClassTypes    map[string]bool // node types that introduce a class-like symbol
	ImportTypes   map[string]bool // top-level node types that are import statements
	CallTypes     map[string]bool // node types that are call expressions

	NameField   string // field holding the identifier for a function/class node
	ParamsField string // field holding the parameter list
	BodyField   string // field holding the block to recurse into / scan for calls

	// CalleeName extracts the textual call target from a call node, in
	// whatever shape is idiomatic for the grammar (selector, member
	// expression, plain identifier).
	CalleeName func(n *sitter.Node, src []byte) string
	// Bases extracts the base class/interface names from a class-like node.
	Bases func(n *sitter.Node, src []byte) []string
	// ImportText extracts the raw module/path text from an import node.
	ImportText func(n *sitter.Node, src []byte) (module, alias string)
}

func newGenericExtractor(spec LanguageSpec) Extractor {
	return &genericExtractor{spec: spec}
}

type genericExtractor struct {
	spec LanguageSpec
}

func (e *genericExtractor) Extract(relPath string, content []byte) model.ParseResult {
	parser := sitter.NewParser()
	parser.SetLanguage(e.spec.Language())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return model.ParseResult{}
	}
	defer tree.Close()

	w := &genericWalk{
		spec:    e.spec,
		src:     content,
		module:  modulePath(relPath),
		indexOf: map[string]int{},
	}
	w.walk(tree.RootNode(), "", nil)
	return model.ParseResult{
		Symbols:  w.symbols,
		Imports:  w.imports,
		Calls:    w.calls,
		Inherits: w.inherits,
	}
}

type genericWalk struct {
	spec   LanguageSpec
	src    []byte
	module string

	symbols  []model.Symbol
	imports  []model.ImportEdge
	calls    []model.CallEdge
	inherits []model.InheritEdge
	indexOf  map[string]int // qualified name -> index into symbols, for call attribution
}

// walk recurses the tree. parentQName/parentIdx identify the enclosing
// class-like symbol, if any, so methods get correct parent linkage and
// top-level imports are only collected once.
func (w *genericWalk) walk(n *sitter.Node, parentQName string, parentIdx *int) {
	if n == nil {
		return
	}
	t := n.Type()

	switch {
	case w.spec.ImportTypes[t] && parentQName == "":
		if w.spec.ImportText != nil {
			module, alias := w.spec.ImportText(n, w.src)
			if module != "" {
				w.imports = append(w.imports, model.ImportEdge{ToModule: module, ImportName: alias})
			}
		}
	case w.spec.ClassTypes[t]:
		w.extractClass(n, parentQName)
		return // extractClass recurses into its own body with the new parent
	case w.spec.FunctionTypes[t]:
		w.extractFunction(n, parentQName, parentIdx)
		return // extractFunction recurses into the body for nested/local calls
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		w.walk(n.NamedChild(i), parentQName, parentIdx)
	}
}

func (w *genericWalk) extractClass(n *sitter.Node, parentQName string) {
	nameNode := n.ChildByFieldName(w.spec.NameField)
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)
	qname := w.qualify(parentQName, name)

	sym := model.Symbol{
		Name:          name,
		QualifiedName: qname,
		Kind:          model.KindClass,
		ParentQName:   parentQName,
		StartLine:     int(n.StartPoint().Row) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
		Documentation: w.leadingComment(n),
		Signature:     firstLine(n.Content(w.src)),
	}
	idx := len(w.symbols)
	w.symbols = append(w.symbols, sym)
	w.indexOf[qname] = idx

	if w.spec.Bases != nil {
		for _, base := range w.spec.Bases(n, w.src) {
			w.inherits = append(w.inherits, model.InheritEdge{ChildSymbolID: int64(idx), ParentQName: base})
		}
	}

	if body := n.ChildByFieldName(w.spec.BodyField); body != nil {
		idxCopy := idx
		count := int(body.NamedChildCount())
		for i := 0; i < count; i++ {
			w.walk(body.NamedChild(i), qname, &idxCopy)
		}
	}
}

func (w *genericWalk) extractFunction(n *sitter.Node, parentQName string, parentIdx *int) {
	nameNode := n.ChildByFieldName(w.spec.NameField)
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)
	qname := w.qualify(parentQName, name)

	kind := model.KindFunction
	if parentQName != "" {
		kind = model.KindMethod
	}

	sym := model.Symbol{
		Name:          name,
		QualifiedName: qname,
		Kind:          kind,
		ParentQName:   parentQName,
		StartLine:     int(n.StartPoint().Row) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
		Documentation: w.leadingComment(n),
		Signature:     firstLine(signatureText(n, w.spec, w.src)),
		Parameters:    w.parameters(n),
	}
	idx := len(w.symbols)
	w.symbols = append(w.symbols, sym)
	w.indexOf[qname] = idx

	body := n.ChildByFieldName(w.spec.BodyField)
	if body == nil {
		return
	}
	w.collectCalls(body, idx)
}

func (w *genericWalk) parameters(n *sitter.Node) []model.Parameter {
	paramsNode := n.ChildByFieldName(w.spec.ParamsField)
	if paramsNode == nil {
		return nil
	}
	var params []model.Parameter
	count := int(paramsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		p := paramsNode.NamedChild(i)
		text := strings.TrimSpace(p.Content(w.src))
		if text == "" {
			continue
		}
		name := text
		if nm := p.ChildByFieldName("name"); nm != nil {
			name = nm.Content(w.src)
		}
		params = append(params, model.Parameter{Name: name})
	}
	return params
}

// collectCalls walks body for call nodes and records an edge attributed to
// the symbol at symbolIdx, without descending into nested function/class
// definitions (those get their own attribution when walk reaches them).
func (w *genericWalk) collectCalls(n *sitter.Node, symbolIdx int) {
	t := n.Type()
	if w.spec.ClassTypes[t] || w.spec.FunctionTypes[t] {
		return
	}
	if w.spec.CallTypes[t] && w.spec.CalleeName != nil {
		target := w.spec.CalleeName(n, w.src)
		if target != "" && !isBuiltinCall(w.spec.Tag, target) {
			w.calls = append(w.calls, model.CallEdge{
				CallerSymbolID: int64(symbolIdx),
				TargetQName:    target,
				Line:           int(n.StartPoint().Row) + 1,
			})
		}
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		w.collectCalls(n.NamedChild(i), symbolIdx)
	}
}

func (w *genericWalk) qualify(parentQName, name string) string {
	if parentQName == "" {
		return w.module + "." + name
	}
	return parentQName + "." + name
}

// leadingComment returns the text of a comment node immediately preceding
// n, stripped of comment markers, or "" if none is adjacent.
func (w *genericWalk) leadingComment(n *sitter.Node) string {
	prev := n.PrevSibling()
	if prev == nil || !strings.Contains(prev.Type(), "comment") {
		return ""
	}
	if int(prev.EndPoint().Row)+1 < int(n.StartPoint().Row) {
		return "" // not adjacent
	}
	text := prev.Content(w.src)
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	return strings.TrimSpace(text)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// signatureText returns everything up to (but not including) the body, so
// the signature reads like "func Foo(a int) error" rather than the whole
// function source.
func signatureText(n *sitter.Node, spec LanguageSpec, src []byte) string {
	body := n.ChildByFieldName(spec.BodyField)
	if body == nil {
		return n.Content(src)
	}
	start := n.StartByte()
	end := body.StartByte()
	if end <= start || int(end) > len(src) {
		return n.Content(src)
	}
	return string(src[start:end])
}

// --- Language specs ---

var goSpec = LanguageSpec{
	Tag:           "go",
	Language:      golang.GetLanguage,
	FunctionTypes: set("function_declaration", "method_declaration"),
	ClassTypes:    set("type_declaration"),
	ImportTypes:   set("import_declaration"),
	CallTypes:     set("call_expression"),
	NameField:     "name",
	ParamsField:   "parameters",
	BodyField:     "body",
	CalleeName: func(n *sitter.Node, src []byte) string {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return ""
		}
		return lastSelectorSegment(fn.Content(src))
	},
	ImportText: func(n *sitter.Node, src []byte) (string, string) {
		// import_declaration wraps one or more import_spec children.
		spec := findNamedDescendant(n, "import_spec")
		if spec == nil {
			return "", ""
		}
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			return "", ""
		}
		module := strings.Trim(pathNode.Content(src), `"`)
		alias := ""
		if name := spec.ChildByFieldName("name"); name != nil {
			alias = name.Content(src)
		}
		return module, alias
	},
}

var javascriptSpec = LanguageSpec{
	Tag:           "javascript",
	Language:      javascript.GetLanguage,
	FunctionTypes: set("function_declaration", "method_definition"),
	ClassTypes:    set("class_declaration"),
	ImportTypes:   set("import_statement"),
	CallTypes:     set("call_expression"),
	NameField:     "name",
	ParamsField:   "parameters",
	BodyField:     "body",
	CalleeName: func(n *sitter.Node, src []byte) string {
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return ""
		}
		return lastSelectorSegment(fn.Content(src))
	},
	Bases: func(n *sitter.Node, src []byte) []string {
		heritage := findNamedDescendant(n, "class_heritage")
		if heritage == nil {
			return nil
		}
		return []string{strings.TrimSpace(strings.TrimPrefix(heritage.Content(src), "extends"))}
	},
	ImportText: func(n *sitter.Node, src []byte) (string, string) {
		src0 := n.Content(src)
		module := betweenQuotes(src0)
		return module, ""
	},
}

var typescriptSpec = LanguageSpec{
	Tag:           "typescript",
	Language:      typescript.GetLanguage,
	FunctionTypes: javascriptSpec.FunctionTypes,
	ClassTypes:    javascriptSpec.ClassTypes,
	ImportTypes:   javascriptSpec.ImportTypes,
	CallTypes:     javascriptSpec.CallTypes,
	NameField:     "name",
	ParamsField:   "parameters",
	BodyField:     "body",
	CalleeName:    javascriptSpec.CalleeName,
	Bases:         javascriptSpec.Bases,
	ImportText:    javascriptSpec.ImportText,
}

var javaSpec = LanguageSpec{
	Tag:           "java",
	Language:      java.GetLanguage,
	FunctionTypes: set("method_declaration", "constructor_declaration"),
	ClassTypes:    set("class_declaration", "interface_declaration"),
	ImportTypes:   set("import_declaration"),
	CallTypes:     set("method_invocation"),
	NameField:     "name",
	ParamsField:   "parameters",
	BodyField:     "body",
	CalleeName: func(n *sitter.Node, src []byte) string {
		name := n.ChildByFieldName("name")
		if name == nil {
			return ""
		}
		if obj := n.ChildByFieldName("object"); obj != nil {
			return obj.Content(src) + "." + name.Content(src)
		}
		return name.Content(src)
	},
	Bases: func(n *sitter.Node, src []byte) []string {
		var bases []string
		if sc := n.ChildByFieldName("superclass"); sc != nil {
			bases = append(bases, strings.TrimSpace(strings.TrimPrefix(sc.Content(src), "extends")))
		}
		if in := n.ChildByFieldName("interfaces"); in != nil {
			text := strings.TrimSpace(strings.TrimPrefix(in.Content(src), "implements"))
			for _, part := range strings.Split(text, ",") {
				if part = strings.TrimSpace(part); part != "" {
					bases = append(bases, part)
				}
			}
		}
		return bases
	},
	ImportText: func(n *sitter.Node, src []byte) (string, string) {
		text := strings.TrimSpace(n.Content(src))
		text = strings.TrimPrefix(text, "import")
		text = strings.TrimSuffix(strings.TrimSpace(text), ";")
		return strings.TrimSpace(text), ""
	},
}

func lastSelectorSegment(expr string) string {
	expr = strings.TrimSpace(expr)
	return expr
}

func findNamedDescendant(n *sitter.Node, nodeType string) *sitter.Node {
	if n.Type() == nodeType {
		return n
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if found := findNamedDescendant(n.NamedChild(i), nodeType); found != nil {
			return found
		}
	}
	return nil
}

func betweenQuotes(s string) string {
	i := strings.IndexAny(s, `"'`)
	if i < 0 {
		return ""
	}
	q := s[i]
	j := strings.IndexByte(s[i+1:], q)
	if j < 0 {
		return ""
	}
	return s[i+1 : i+1+j]
}

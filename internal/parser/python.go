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
	"github.com/smacker/go-tree-sitter/python"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

// pythonExtractor walks the full tree-sitter Python grammar tree rather
// than driving off a generic node-type table: it is the deep extractor,
// the reference for complete field coverage (decorators, parameter
// defaults and annotations, return annotations, docstrings), since Python
// decorators and type annotations have no equivalent in the generic
// LanguageSpec table the other languages share.
type pythonExtractor struct{}

func newPythonExtractor() Extractor { return pythonExtractor{} }

func (pythonExtractor) Extract(relPath string, content []byte) model.ParseResult {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return model.ParseResult{}
	}
	defer tree.Close()

	w := &pyWalk{src: content, module: modulePath(relPath)}
	w.walkBlock(tree.RootNode(), "", nil)
	return model.ParseResult{
		Symbols:  w.symbols,
		Imports:  w.imports,
		Calls:    w.calls,
		Inherits: w.inherits,
	}
}

type pyWalk struct {
	src    []byte
	module string

	symbols  []model.Symbol
	imports  []model.ImportEdge
	calls    []model.CallEdge
	inherits []model.InheritEdge
}

// walkBlock iterates the statements of a module or class/function body.
// parentQName/parentIdx describe the enclosing class (for method parent
// linkage); they're empty/nil at module scope.
func (w *pyWalk) walkBlock(block *sitter.Node, parentQName string, parentIdx *int) {
	count := int(block.NamedChildCount())
	for i := 0; i < count; i++ {
		stmt := block.NamedChild(i)
		def := unwrapDecorated(stmt)
		switch def.Type() {
		case "function_definition":
			w.extractFunction(def, parentQName)
		case "class_definition":
			w.extractClass(def, parentQName)
		case "import_statement", "import_from_statement":
			if parentQName == "" {
				w.extractImport(def)
			}
		}
	}
}

// unwrapDecorated returns the inner function/class definition node, handling
// the decorated_definition wrapper tree-sitter-python emits for
// `@foo\ndef bar(): ...`. Decorator text itself is read separately by
// decoratorNames, which walks back up from the inner node.
func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n.Type() != "decorated_definition" {
		return n
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c.Type() != "decorator" {
			return c
		}
	}
	return n
}

func (w *pyWalk) extractFunction(n *sitter.Node, parentQName string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(w.text(nameNode))
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
		Documentation: w.docstring(n),
		Parameters:    w.parameters(n),
		Decorators:    w.decoratorNames(n),
		ReturnType:    w.returnType(n),
	}
	sym.Signature = w.signature(n, sym)
	idx := len(w.symbols)
	w.symbols = append(w.symbols, sym)

	if body := n.ChildByFieldName("body"); body != nil {
		w.collectCalls(body, idx)
		w.walkBlock(body, "", nil) // nested defs inside a function are module-scoped by qname, not method-scoped
	}
}

func (w *pyWalk) extractClass(n *sitter.Node, parentQName string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(w.text(nameNode))
	qname := w.qualify(parentQName, name)

	sym := model.Symbol{
		Name:          name,
		QualifiedName: qname,
		Kind:          model.KindClass,
		ParentQName:   parentQName,
		StartLine:     int(n.StartPoint().Row) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
		Documentation: w.docstring(n),
		Decorators:    w.decoratorNames(n),
	}
	idx := len(w.symbols)
	w.symbols = append(w.symbols, sym)

	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		bcount := int(bases.NamedChildCount())
		for i := 0; i < bcount; i++ {
			base := bases.NamedChild(i)
			if base.Type() == "keyword_argument" { // e.g. metaclass=
				continue
			}
			w.inherits = append(w.inherits, model.InheritEdge{
				ChildSymbolID: int64(idx),
				ParentQName:   string(w.text(base)),
			})
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		w.walkBlock(body, qname, &idx)
	}
}

func (w *pyWalk) extractImport(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "dotted_name":
				w.imports = append(w.imports, model.ImportEdge{ToModule: string(w.text(c))})
			case "aliased_import":
				module := c.ChildByFieldName("name")
				alias := c.ChildByFieldName("alias")
				if module != nil {
					ie := model.ImportEdge{ToModule: string(w.text(module))}
					if alias != nil {
						ie.ImportName = string(w.text(alias))
					}
					w.imports = append(w.imports, ie)
				}
			}
		}
	case "import_from_statement":
		moduleNode := n.ChildByFieldName("module_name")
		module := ""
		if moduleNode != nil {
			module = string(w.text(moduleNode))
		}
		count := int(n.NamedChildCount())
		named := false
		for i := 0; i < count; i++ {
			c := n.NamedChild(i)
			if c.Type() != "dotted_name" && c.Type() != "aliased_import" && c.Type() != "wildcard_import" {
				continue
			}
			if moduleNode != nil && c == moduleNode {
				continue
			}
			named = true
			name := string(w.text(c))
			w.imports = append(w.imports, model.ImportEdge{ToModule: module + "." + name, ImportName: name})
		}
		if !named && module != "" {
			w.imports = append(w.imports, model.ImportEdge{ToModule: module})
		}
	}
}

// collectCalls finds call expressions within n, attributing each to
// symbolIdx, without descending into a nested def/class (those get their
// own attribution when walkBlock reaches them).
func (w *pyWalk) collectCalls(n *sitter.Node, symbolIdx int) {
	t := n.Type()
	if t == "function_definition" || t == "class_definition" {
		return
	}
	if t == "call" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			target := string(w.text(fn))
			if target != "" && !isBuiltinCall("python", target) {
				w.calls = append(w.calls, model.CallEdge{
					CallerSymbolID: int64(symbolIdx),
					TargetQName:    target,
					Line:           int(n.StartPoint().Row) + 1,
				})
			}
		}
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		w.collectCalls(n.NamedChild(i), symbolIdx)
	}
}

func (w *pyWalk) parameters(n *sitter.Node) []model.Parameter {
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var out []model.Parameter
	count := int(paramsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		p := paramsNode.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out = append(out, model.Parameter{Name: string(w.text(p))})
		case "typed_parameter":
			name := ""
			if id := firstChildOfType(p, "identifier"); id != nil {
				name = string(w.text(id))
			}
			typ := ""
			if tn := p.ChildByFieldName("type"); tn != nil {
				typ = string(w.text(tn))
			}
			out = append(out, model.Parameter{Name: name, Type: typ})
		case "default_parameter":
			name := ""
			if nm := p.ChildByFieldName("name"); nm != nil {
				name = string(w.text(nm))
			}
			def := ""
			if v := p.ChildByFieldName("value"); v != nil {
				def = string(w.text(v))
			}
			out = append(out, model.Parameter{Name: name, Default: def})
		case "typed_default_parameter":
			name := ""
			if nm := p.ChildByFieldName("name"); nm != nil {
				name = string(w.text(nm))
			}
			typ := ""
			if tn := p.ChildByFieldName("type"); tn != nil {
				typ = string(w.text(tn))
			}
			def := ""
			if v := p.ChildByFieldName("value"); v != nil {
				def = string(w.text(v))
			}
			out = append(out, model.Parameter{Name: name, Type: typ, Default: def})
		case "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, model.Parameter{Name: string(w.text(p))})
		}
	}
	return out
}

func (w *pyWalk) returnType(n *sitter.Node) string {
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		return string(w.text(rt))
	}
	return ""
}

func (w *pyWalk) decoratorNames(n *sitter.Node) []string {
	parent := n.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var names []string
	count := int(parent.NamedChildCount())
	for i := 0; i < count; i++ {
		c := parent.NamedChild(i)
		if c.Type() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(strings.TrimSpace(string(w.text(c))), "@")
		names = append(names, text)
	}
	return names
}

// docstring returns the first string-expression statement in n's body, the
// Python convention for documentation, stripped of quotes.
func (w *pyWalk) docstring(n *sitter.Node) string {
	body := n.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return cleanDocstring(string(w.text(str)))
}

func cleanDocstring(s string) string {
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}

func (w *pyWalk) signature(n *sitter.Node, sym model.Symbol) string {
	var b strings.Builder
	b.WriteString("def ")
	b.WriteString(sym.Name)
	b.WriteByte('(')
	for i, p := range sym.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type != "" {
			b.WriteString(": ")
			b.WriteString(p.Type)
		}
		if p.Default != "" {
			b.WriteString(" = ")
			b.WriteString(p.Default)
		}
	}
	b.WriteByte(')')
	if sym.ReturnType != "" {
		b.WriteString(" -> ")
		b.WriteString(sym.ReturnType)
	}
	return b.String()
}

func (w *pyWalk) qualify(parentQName, name string) string {
	if parentQName == "" {
		return w.module + "." + name
	}
	return parentQName + "." + name
}

func (w *pyWalk) text(n *sitter.Node) []byte {
	return []byte(n.Content(w.src))
}

func firstChildOfType(n *sitter.Node, t string) *sitter.Node {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c.Type() == t {
			return c
		}
	}
	return nil
}

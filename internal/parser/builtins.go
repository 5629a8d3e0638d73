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

// builtinCalls is a per-language deny-list of identifiers that are
// language built-ins or standard-library calls common enough that leaving
// them in the call graph would swamp every function's callee list with
// noise (print, len, and the like) without ever resolving to a symbol this
// engine indexes. Filtering happens at extraction time, per spec: "Calls to
// identifiers recognised as language built-ins or standard-library names
// SHOULD be filtered at extraction time."
//
// These lists are deliberately small and conservative: a false negative
// (a builtin left in) just leaves one more permanently-unresolved call
// edge; a false positive (a real user function filtered out) silently
// loses part of the call graph, which is the worse failure mode.
var builtinCalls = map[string]map[string]bool{
	"python": set(
		"print", "len", "range", "enumerate", "zip", "map", "filter",
		"isinstance", "issubclass", "super", "type", "str", "int", "float",
		"bool", "list", "dict", "set", "tuple", "frozenset", "open", "repr",
		"getattr", "setattr", "hasattr", "delattr", "iter", "next", "sorted",
		"reversed", "sum", "min", "max", "abs", "round", "all", "any",
		"format", "vars", "id", "hash", "callable", "staticmethod",
		"classmethod", "property", "__init__", "__str__", "__repr__",
	),
	"go": set(
		"len", "cap", "make", "new", "append", "copy", "delete", "panic",
		"recover", "print", "println", "close", "complex", "real", "imag",
		"min", "max", "clear",
	),
	"javascript": set(
		"console.log", "console.error", "console.warn", "console.info",
		"parseInt", "parseFloat", "isNaN", "isFinite", "setTimeout",
		"setInterval", "clearTimeout", "clearInterval", "require",
		"JSON.stringify", "JSON.parse", "Array.isArray", "Object.keys",
		"Object.values", "Object.entries", "Object.assign",
	),
	"typescript": set(
		"console.log", "console.error", "console.warn", "console.info",
		"parseInt", "parseFloat", "isNaN", "isFinite", "setTimeout",
		"setInterval", "clearTimeout", "clearInterval",
		"JSON.stringify", "JSON.parse", "Array.isArray", "Object.keys",
		"Object.values", "Object.entries", "Object.assign",
	),
	"java": set(
		"System.out.println", "System.out.print", "System.err.println",
		"toString", "equals", "hashCode", "getClass", "super", "this",
	),
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// isBuiltinCall reports whether target is a filtered built-in/stdlib call
// for language.
func isBuiltinCall(language, target string) bool {
	return builtinCalls[language][target]
}

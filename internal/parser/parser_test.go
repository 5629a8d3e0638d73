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
	"testing"

	"github.com/codelibrarian/codelibrarian/internal/model"
)

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"pkg/foo.go":   "go",
		"a/b/c.py":     "python",
		"x.ts":         "typescript",
		"x.tsx":        "typescript",
		"x.jsx":        "javascript",
		"schema.proto": "protobuf",
		"README.md":    "",
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDispatch_UnknownLanguageReturnsEmpty(t *testing.T) {
	r := Dispatch("cobol", "x.cob", []byte("IDENTIFICATION DIVISION."))
	if len(r.Symbols) != 0 {
		t.Fatalf("expected empty result for unknown language, got %+v", r)
	}
}

func TestPythonExtractor_FunctionsClassesAndCalls(t *testing.T) {
	src := `"""module doc"""
import os
from collections import OrderedDict


def helper(x, y=1):
    """adds two numbers"""
    return x + y


class Animal:
    """a creature"""

    def speak(self):
        return helper(1, 2)


class Dog(Animal):
    def fetch(self):
        pass
`
	result := newPythonExtractor().Extract("zoo/animals.py", []byte(src))

	byName := map[string]model.Symbol{}
	for _, s := range result.Symbols {
		byName[s.Name] = s
	}

	helper, ok := byName["helper"]
	if !ok {
		t.Fatalf("expected helper symbol, got %+v", result.Symbols)
	}
	if helper.Kind != model.KindFunction {
		t.Errorf("expected helper to be a function, got %s", helper.Kind)
	}
	if len(helper.Parameters) != 2 || helper.Parameters[1].Default != "1" {
		t.Errorf("expected helper params [x, y=1], got %+v", helper.Parameters)
	}
	if helper.Documentation != "adds two numbers" {
		t.Errorf("expected docstring extracted, got %q", helper.Documentation)
	}

	speak, ok := byName["speak"]
	if !ok {
		t.Fatalf("expected speak symbol, got %+v", result.Symbols)
	}
	if speak.Kind != model.KindMethod {
		t.Errorf("expected speak to be a method, got %s", speak.Kind)
	}
	if speak.ParentQName == "" {
		t.Errorf("expected speak to carry a parent qualified name")
	}

	if len(result.Inherits) != 1 || result.Inherits[0].ParentQName != "Animal" {
		t.Fatalf("expected Dog to inherit from Animal, got %+v", result.Inherits)
	}

	foundCall := false
	for _, c := range result.Calls {
		if c.TargetQName == "helper" {
			foundCall = true
		}
	}
	if !foundCall {
		t.Fatalf("expected a call edge targeting helper, got %+v", result.Calls)
	}

	foundImport := false
	for _, im := range result.Imports {
		if im.ToModule == "os" {
			foundImport = true
		}
	}
	if !foundImport {
		t.Fatalf("expected an import edge for os, got %+v", result.Imports)
	}
}

func TestPythonExtractor_MalformedSourceNeverPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Extract panicked on malformed source: %v", r)
		}
	}()
	r := Dispatch("python", "broken.py", []byte("def (((( not valid python"))
	_ = r
}

func TestGoExtractor_FunctionAndMethod(t *testing.T) {
	src := `package widgets

type Widget struct {
	Name string
}

func (w *Widget) Render() string {
	return format(w.Name)
}

func format(s string) string {
	return s
}
`
	result := Dispatch("go", "widgets/widget.go", []byte(src))
	names := map[string]model.Symbol{}
	for _, s := range result.Symbols {
		names[s.Name] = s
	}
	if _, ok := names["Render"]; !ok {
		t.Fatalf("expected Render symbol, got %+v", result.Symbols)
	}
	if _, ok := names["format"]; !ok {
		t.Fatalf("expected format symbol, got %+v", result.Symbols)
	}
}

func TestProtobufExtractor_ServiceMessageRPC(t *testing.T) {
	src := `syntax = "proto3";

import "google/protobuf/empty.proto";

message SearchRequest {
  string query = 1;
}

service Librarian {
  rpc Search(SearchRequest) returns (SearchResponse);
}
`
	result := protobufExtractor{}.Extract("api/librarian.proto", []byte(src))

	var haveService, haveMessage, haveRPC bool
	for _, s := range result.Symbols {
		switch s.Name {
		case "Librarian":
			haveService = s.Kind == model.KindClass
		case "SearchRequest":
			haveMessage = s.Kind == model.KindClass
		case "Search":
			haveRPC = s.Kind == model.KindMethod
		}
	}
	if !haveService || !haveMessage || !haveRPC {
		t.Fatalf("expected service/message/rpc symbols, got %+v", result.Symbols)
	}
	if len(result.Imports) != 1 || result.Imports[0].ToModule != "google/protobuf/empty.proto" {
		t.Fatalf("expected one import edge, got %+v", result.Imports)
	}
}

func TestIsBuiltinCall(t *testing.T) {
	if !isBuiltinCall("python", "print") {
		t.Errorf("expected print to be filtered as a python builtin")
	}
	if isBuiltinCall("python", "compute_embedding") {
		t.Errorf("did not expect compute_embedding to be filtered")
	}
}

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

package search

import (
	"regexp"

	"github.com/codelibrarian/codelibrarian/internal/model"
	"github.com/codelibrarian/codelibrarian/internal/rewrite"
)

// testFilePath matches the common per-language test-file conventions: Go's
// _test.go suffix, Python's test_*.py/*_test.py, JS/TS's *.test.*/*.spec.*,
// and Java's Test*.java/*Test.java.
var testFilePath = regexp.MustCompile(`(?i)(_test\.go$|(^|/)test_[^/]+\.py$|_test\.py$|\.(test|spec)\.[jt]sx?$|(^|/)Test[^/]+\.java$|Test\.java$)`)

func isTestFilePath(path string) bool {
	return testFilePath.MatchString(path)
}

// applyFocus scales scores of results whose file path looks like a test
// file when focus biases toward implementation (and symmetrically when it
// biases toward tests). A focus of "all" leaves scores untouched.
func applyFocus(results []model.SearchResult, focus rewrite.Focus, multiplier float64) {
	switch focus {
	case rewrite.FocusImplementation:
		for i := range results {
			if isTestFilePath(results[i].Symbol.FilePath) {
				results[i].Score *= multiplier
			}
		}
	case rewrite.FocusTests:
		for i := range results {
			if !isTestFilePath(results[i].Symbol.FilePath) {
				results[i].Score *= multiplier
			}
		}
	}
}

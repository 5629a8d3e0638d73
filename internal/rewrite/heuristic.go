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

package rewrite

import (
	"regexp"
	"strings"
)

var questionWords = map[string]bool{
	"how": true, "what": true, "why": true, "where": true, "when": true,
	"who": true, "which": true, "does": true, "do": true, "is": true,
	"are": true, "can": true, "should": true,
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "in": true,
	"on": true, "for": true, "and": true, "or": true, "that": true,
	"this": true, "it": true, "with": true, "i": true, "we": true,
}

// identifierLike matches tokens that look like code: letter-initial
// snake_case, camelCase starting with a lowercase letter or digit, or any
// token containing a dot (dotted paths).
var identifierLike = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(_[A-Za-z0-9]+)+$|^[a-z0-9]+[A-Z][A-Za-z0-9]*$|\.`)

// ShouldRewrite applies the conservative heuristic from the spec: trigger
// on natural-language question words, a low code-token ratio, three or
// more non-stop-word tokens, and the absence of any identifier-like
// token. All four conditions must hold — a single code-shaped token in an
// otherwise plain-English query is enough to skip the rewrite.
func ShouldRewrite(query string) bool {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return false
	}

	hasQuestionWord := false
	nonStopCount := 0
	for _, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,?!"))
		if questionWords[lower] {
			hasQuestionWord = true
		}
		if identifierLike.MatchString(tok) {
			return false
		}
		if !stopWords[lower] {
			nonStopCount++
		}
	}

	return hasQuestionWord && nonStopCount >= 3
}

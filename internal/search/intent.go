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

import "regexp"

// intentPattern pairs a phrase pattern with the graph traversal it routes
// to. Order matters: more specific phrasings are listed first so e.g.
// "callees of" is tried before the bare "calls" pattern gets a chance to
// misfire on it.
type intentPattern struct {
	re   *regexp.Regexp
	kind string
}

var intentPatterns = []intentPattern{
	{regexp.MustCompile(`(?i)^who calls\s+(.+)$`), "callers"},
	{regexp.MustCompile(`(?i)^callers of\s+(.+)$`), "callers"},
	{regexp.MustCompile(`(?i)^callees of\s+(.+)$`), "callees"},
	{regexp.MustCompile(`(?i)^hierarchy of\s+(.+)$`), "hierarchy"},
	{regexp.MustCompile(`(?i)^subclasses of\s+(.+)$`), "hierarchy"},
	{regexp.MustCompile(`(?i)^implements\s+(.+)$`), "hierarchy"},
	{regexp.MustCompile(`(?i)^what does\s+(.+?)\s+calls?$`), "callees"},
	{regexp.MustCompile(`(?i)^(.+?)\s+calls$`), "callees"},
}

// classifyIntent inspects query for a graph-intent phrasing, returning the
// traversal kind ("callers", "callees", "hierarchy") and the extracted
// target name.
func classifyIntent(query string) (kind string, target string, ok bool) {
	for _, p := range intentPatterns {
		if m := p.re.FindStringSubmatch(query); m != nil {
			return p.kind, m[1], true
		}
	}
	return "", "", false
}

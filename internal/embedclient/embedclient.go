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

// Package embedclient talks to an OpenAI-compatible embeddings endpoint
// (the default config points at a local Ollama server) and provides a
// deterministic mock for tests that don't want a live HTTP dependency.
package embedclient

import "context"

// Provider turns a batch of texts into equal-length float32 vectors, one
// per input, in the same order. A provider returns an error for the whole
// batch rather than partial results: the indexing pass's contract (spec
// §4.3) is "log once, abort the embedding pass" on any failure, not
// per-item retry.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

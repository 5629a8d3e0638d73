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

// Package metrics holds the Prometheus instrumentation for an indexing
// pass. Unlike a package-level global registry, Recorder is a value the
// caller constructs and threads through internal/indexer explicitly, so a
// process that runs more than one pass (or runs in a test) doesn't trip
// Prometheus's "duplicate metrics collector registration" panic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the indexing-pass instrumentation. A nil *Recorder is valid
// and every method on it is a no-op, so callers that don't care about
// metrics (most tests) can pass nil instead of standing up a registry.
type Recorder struct {
	filesScanned   prometheus.Counter
	filesIndexed   prometheus.Counter
	filesSkipped   prometheus.Counter
	filesRemoved   prometheus.Counter
	filesFailed    prometheus.Counter
	symbolsWritten prometheus.Counter
	edgesResolved  prometheus.Counter
	embedComputed  prometheus.Counter
	embedErrors    prometheus.Counter

	parseDuration prometheus.Histogram
	embedDuration prometheus.Histogram
	passDuration  prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg.
func New(reg *prometheus.Registry) *Recorder {
	buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	r := &Recorder{
		filesScanned:   prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_files_scanned_total", Help: "Files visited during discovery."}),
		filesIndexed:   prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_files_indexed_total", Help: "Files parsed and written this pass."}),
		filesSkipped:   prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_files_skipped_total", Help: "Files skipped because their content hash was unchanged."}),
		filesRemoved:   prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_files_removed_total", Help: "Indexed files removed because they vanished from disk."}),
		filesFailed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_files_failed_total", Help: "Files that could not be read or written to the store."}),
		symbolsWritten: prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_symbols_written_total", Help: "Symbol rows written across all files this pass."}),
		edgesResolved:  prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_edges_resolved_total", Help: "Import/call/inherit edges resolved to a symbol or file."}),
		embedComputed:  prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_embeddings_computed_total", Help: "Embeddings successfully written."}),
		embedErrors:    prometheus.NewCounter(prometheus.CounterOpts{Name: "codelibrarian_embeddings_errors_total", Help: "Embedding batches abandoned after a provider error."}),
		parseDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codelibrarian_parse_seconds", Help: "Per-file parse duration.", Buckets: buckets}),
		embedDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codelibrarian_embed_seconds", Help: "Embedding batch duration.", Buckets: buckets}),
		passDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codelibrarian_pass_seconds", Help: "Total indexing pass duration.", Buckets: buckets}),
	}
	reg.MustRegister(
		r.filesScanned, r.filesIndexed, r.filesSkipped, r.filesRemoved, r.filesFailed,
		r.symbolsWritten, r.edgesResolved, r.embedComputed, r.embedErrors,
		r.parseDuration, r.embedDuration, r.passDuration,
	)
	return r
}

func (r *Recorder) FileScanned()            { r.incr(r.filesScanned) }
func (r *Recorder) FileIndexed()            { r.incr(r.filesIndexed) }
func (r *Recorder) FileSkipped()            { r.incr(r.filesSkipped) }
func (r *Recorder) FileRemoved()            { r.incr(r.filesRemoved) }
func (r *Recorder) FileFailed()             { r.incr(r.filesFailed) }
func (r *Recorder) SymbolsWritten(n int)    { r.add(r.symbolsWritten, n) }
func (r *Recorder) EdgesResolved(n int)     { r.add(r.edgesResolved, n) }
func (r *Recorder) EmbeddingComputed()      { r.incr(r.embedComputed) }
func (r *Recorder) EmbeddingError()         { r.incr(r.embedErrors) }
func (r *Recorder) ObserveParse(seconds float64) { r.observe(r.parseDuration, seconds) }
func (r *Recorder) ObserveEmbed(seconds float64) { r.observe(r.embedDuration, seconds) }
func (r *Recorder) ObservePass(seconds float64)  { r.observe(r.passDuration, seconds) }

func (r *Recorder) incr(c prometheus.Counter) {
	if r == nil {
		return
	}
	c.Inc()
}

func (r *Recorder) add(c prometheus.Counter, n int) {
	if r == nil || n <= 0 {
		return
	}
	c.Add(float64(n))
}

func (r *Recorder) observe(h prometheus.Histogram, v float64) {
	if r == nil {
		return
	}
	h.Observe(v)
}

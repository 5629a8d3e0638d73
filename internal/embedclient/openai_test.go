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

package embedclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2.0}
}

func TestEmbed_RetriesOnServerErrorThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0,0]}]}`))
	}))
	defer srv.Close()

	client := NewOpenAI(srv.URL, "test-model", 3)
	client.SetRetryConfig(fastRetryConfig())

	vectors, err := client.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestEmbed_NonRetryableFailsImmediately(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	}))
	defer srv.Close()

	client := NewOpenAI(srv.URL, "test-model", 3)
	client.SetRetryConfig(fastRetryConfig())

	if _, err := client.Embed(context.Background(), []string{"hello"}); err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable error, got %d", got)
	}
}

func TestEmbed_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewOpenAI(srv.URL, "test-model", 3)
	client.SetRetryConfig(fastRetryConfig())

	if _, err := client.Embed(context.Background(), []string{"hello"}); err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected MaxRetries (3) attempts, got %d", got)
	}
}

func TestEmbed_EmptyInputShortCircuits(t *testing.T) {
	client := NewOpenAI("http://unused.invalid", "test-model", 3)
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil) returned error: %v", err)
	}
	if vectors != nil {
		t.Fatalf("Embed(nil) = %+v, want nil", vectors)
	}
}

func TestSetRetryConfig_FillsZeroFieldsWithDefaults(t *testing.T) {
	client := NewOpenAI("http://unused.invalid", "test-model", 3)
	client.SetRetryConfig(RetryConfig{MaxRetries: 5})

	if client.retry.MaxRetries != 5 {
		t.Fatalf("expected MaxRetries 5, got %d", client.retry.MaxRetries)
	}
	if client.retry.InitialBackoff != 200*time.Millisecond {
		t.Fatalf("expected default InitialBackoff, got %v", client.retry.InitialBackoff)
	}
	if client.retry.MaxBackoff != 2*time.Second {
		t.Fatalf("expected default MaxBackoff, got %v", client.retry.MaxBackoff)
	}
	if client.retry.Multiplier != 2.0 {
		t.Fatalf("expected default Multiplier, got %v", client.retry.Multiplier)
	}
}

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

// Package config loads and validates the project's .codelibrarian/config.toml.
//
// The config is read once at process start and treated as immutable for the
// lifetime of the process (see spec §5, "Config is immutable after load").
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ProjectDir is the project-relative directory holding config and database.
const ProjectDir = ".codelibrarian"

// ConfigFileName is the config file within ProjectDir.
const ConfigFileName = "config.toml"

// IndexConfig configures discovery.
type IndexConfig struct {
	Root      string   `toml:"root"`
	Exclude   []string `toml:"exclude"`
	Languages []string `toml:"languages"`
}

// EmbeddingsConfig configures the embedding pass.
type EmbeddingsConfig struct {
	APIURL     string `toml:"api_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	BatchSize  int    `toml:"batch_size"`
	MaxChars   int    `toml:"max_chars"`
	Enabled    bool   `toml:"enabled"`
	// MaxRetries caps how many attempts, the first one included, are made
	// at a failing embedding request (with backoff between them) before
	// the pass aborts and logs a warning.
	MaxRetries int `toml:"max_retries"`
}

// DatabaseConfig configures the store location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// QueryRewriteConfig configures the optional search query rewriter.
type QueryRewriteConfig struct {
	Enabled bool   `toml:"enabled"`
	APIURL  string `toml:"api_url"`
	Model   string `toml:"model"`
	Timeout int    `toml:"timeout"` // seconds
}

// SearchConfig configures search-engine knobs that the spec leaves open.
type SearchConfig struct {
	// FocusMultiplier scales scores for path-convention mismatches when a
	// rewrite focus of "implementation" or "tests" is applied. Spec §9 Open
	// Question 2: 0.5 per the design doc, exposed here as a knob.
	FocusMultiplier float64 `toml:"focus_multiplier"`
}

// Config is the fully parsed, defaulted configuration.
type Config struct {
	Index        IndexConfig        `toml:"index"`
	Embeddings   EmbeddingsConfig   `toml:"embeddings"`
	Database     DatabaseConfig     `toml:"database"`
	QueryRewrite QueryRewriteConfig `toml:"query_rewrite"`
	Search       SearchConfig       `toml:"search"`

	// ProjectRoot is the directory containing .codelibrarian/, set by Load,
	// not part of the TOML document.
	ProjectRoot string `toml:"-"`
}

// Default returns a Config with every field defaulted, rooted at root.
func Default(root string) *Config {
	return &Config{
		Index: IndexConfig{
			Root: ".",
			Exclude: []string{
				".git/**", ".codelibrarian/**", "node_modules/**",
				"vendor/**", "dist/**", "build/**", "*.min.js",
			},
			Languages: []string{"python", "go", "javascript", "typescript", "java", "protobuf"},
		},
		Embeddings: EmbeddingsConfig{
			APIURL:     "http://localhost:11434/v1/embeddings",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BatchSize:  32,
			MaxChars:   4000,
			Enabled:    false,
			MaxRetries: 3,
		},
		Database: DatabaseConfig{
			Path: "index.db",
		},
		QueryRewrite: QueryRewriteConfig{
			Enabled: false,
			Timeout: 5,
		},
		Search: SearchConfig{
			FocusMultiplier: 0.5,
		},
		ProjectRoot: root,
	}
}

// Path returns the config file path for a given project root.
func Path(root string) string {
	return filepath.Join(root, ProjectDir, ConfigFileName)
}

// DBPath returns the absolute path to the index database.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.ProjectRoot, ProjectDir, c.Database.Path)
}

// Load reads and validates the config at root/.codelibrarian/config.toml.
func Load(root string) (*Config, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default(root)
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ProjectRoot = root

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects an empty index.root and, when embeddings are enabled, a
// non-positive embeddings.dimensions or an empty embeddings.api_url; it
// also rejects an enabled query_rewrite with no api_url. Non-positive
// batch_size, max_chars, max_retries, timeout and focus_multiplier values
// are replaced by their defaults rather than rejected. It does not check
// that the root exists, nor compare dimensions with vectors already stored.
func (c *Config) Validate() error {
	if c.Index.Root == "" {
		return fmt.Errorf("index.root must not be empty")
	}
	if c.Embeddings.Enabled {
		if c.Embeddings.Dimensions <= 0 {
			return fmt.Errorf("embeddings.dimensions must be positive when embeddings are enabled")
		}
		if c.Embeddings.APIURL == "" {
			return fmt.Errorf("embeddings.api_url must be set when embeddings are enabled")
		}
		if c.Embeddings.BatchSize <= 0 {
			c.Embeddings.BatchSize = 32
		}
		if c.Embeddings.MaxChars <= 0 {
			c.Embeddings.MaxChars = 4000
		}
		if c.Embeddings.MaxRetries <= 0 {
			c.Embeddings.MaxRetries = 3
		}
	}
	if c.QueryRewrite.Enabled && c.QueryRewrite.APIURL == "" {
		return fmt.Errorf("query_rewrite.api_url must be set when query_rewrite is enabled")
	}
	if c.QueryRewrite.Timeout <= 0 {
		c.QueryRewrite.Timeout = 5
	}
	if c.Search.FocusMultiplier <= 0 {
		c.Search.FocusMultiplier = 0.5
	}
	return nil
}

// Init writes a default config.toml to root/.codelibrarian/, creating the
// directory if needed. It refuses to overwrite an existing file unless
// force is true.
func Init(root string, force bool) (*Config, error) {
	dir := filepath.Join(root, ProjectDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	path := Path(root)
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%s already exists (use force to overwrite)", path)
	}

	cfg := Default(root)
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return cfg, nil
}

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

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/codelibrarian/codelibrarian/internal/config"
)

// projectRoot resolves the project root a subcommand should operate on:
// the --config flag value if given, otherwise the current directory.
func projectRoot(configPath string) string {
	if configPath != "" {
		return configPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}
	return cwd
}

// loadOrDefaultConfig loads root/.codelibrarian/config.toml, falling back
// to a defaulted config if no file has been written yet (so 'index' works
// against a project that never ran 'init').
func loadOrDefaultConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(root), nil
	}
	return nil, err
}

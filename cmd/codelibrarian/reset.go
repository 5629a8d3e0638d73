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
	"flag"
	"fmt"
	"os"

	"github.com/codelibrarian/codelibrarian/internal/errors"
)

// runReset executes the 'reset' CLI command, deleting the local index
// database so the next 'index' run starts clean.
//
// Examples:
//
//	codelibrarian reset --yes
func runReset(args []string, configPath string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codelibrarian reset [options]

Deletes the local index database, clearing all indexed data.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"Reset not confirmed",
			"This will delete all indexed data for the project",
			"Pass --yes to confirm the reset",
		), false)
	}

	root := projectRoot(configPath)
	cfg, err := loadOrDefaultConfig(root)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load codelibrarian configuration",
			err.Error(),
			"Run 'codelibrarian init' to create a new configuration",
			err,
		), false)
	}

	dbPath := cfg.DBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No local index data found.")
		return
	}

	fmt.Printf("Resetting index (deleting %s)...\n", dbPath)
	if err := os.Remove(dbPath); err != nil {
		errors.FatalError(errors.NewPermissionError(
			"Cannot delete index database",
			err.Error(),
			"Check file permissions on "+dbPath,
			err,
		), false)
	}

	fmt.Println("Reset complete. All local indexed data has been deleted.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  codelibrarian index --full    Reindex the project")
}

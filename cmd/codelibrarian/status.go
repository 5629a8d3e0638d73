// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/codelibrarian/codelibrarian/internal/errors"
	"github.com/codelibrarian/codelibrarian/internal/output"
	"github.com/codelibrarian/codelibrarian/internal/store"
	"github.com/codelibrarian/codelibrarian/internal/ui"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	DBPath     string    `json:"db_path"`
	Indexed    bool      `json:"indexed"`
	Files      int       `json:"files"`
	Symbols    int       `json:"symbols"`
	Imports    int       `json:"imports"`
	Calls      int       `json:"calls"`
	Inherits   int       `json:"inherits"`
	Embeddings int       `json:"embeddings"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, reporting row counts from
// the local index database.
//
// Examples:
//
//	codelibrarian status           Display formatted status
//	codelibrarian status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codelibrarian status [options]

Shows local project status.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root := projectRoot(configPath)
	cfg, err := loadOrDefaultConfig(root)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load codelibrarian configuration",
			err.Error(),
			"Run 'codelibrarian init' to create a new configuration",
			err,
		), *jsonOutput)
	}

	dbPath := cfg.DBPath()
	result := &StatusResult{DBPath: dbPath, Timestamp: time.Now()}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		result.Error = "Project not indexed yet. Run 'codelibrarian index' first."
		if *jsonOutput {
			outputStatusJSON(result)
		} else {
			ui.Warning("Project not indexed yet.")
			fmt.Println("Run 'codelibrarian index' to index the repository.")
		}
		return
	}

	s, err := store.Open(dbPath)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open codelibrarian database",
			err.Error(),
			"Close other codelibrarian instances or run: codelibrarian reset --yes",
			err,
		), *jsonOutput)
	}
	defer func() { _ = s.Close() }()

	counts, err := s.Counts(context.Background())
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot read index counts",
			err.Error(),
			"Run 'codelibrarian reset --yes' and reindex if the database is corrupted",
			err,
		), *jsonOutput)
	}

	result.Indexed = true
	result.Files = counts.Files
	result.Symbols = counts.Symbols
	result.Imports = counts.Imports
	result.Calls = counts.Calls
	result.Inherits = counts.Inherits
	result.Embeddings = counts.Embeddings

	if *jsonOutput {
		outputStatusJSON(result)
	} else {
		printLocalStatus(result)
	}
}

func outputStatusJSON(result *StatusResult) {
	if err := output.JSON(result); err != nil {
		errors.FatalError(err, true)
	}
}

func printLocalStatus(result *StatusResult) {
	ui.Header("codelibrarian project status")
	fmt.Printf("%s %s\n", ui.Label("Database:"), ui.DimText(result.DBPath))
	fmt.Println()

	ui.SubHeader("Entities:")
	fmt.Printf("  %s %s\n", ui.Label(fmt.Sprintf("%-12s", "Files:")), ui.CountText(result.Files))
	fmt.Printf("  %s %s\n", ui.Label(fmt.Sprintf("%-12s", "Symbols:")), ui.CountText(result.Symbols))
	fmt.Printf("  %s %s\n", ui.Label(fmt.Sprintf("%-12s", "Imports:")), ui.CountText(result.Imports))
	fmt.Printf("  %s %s\n", ui.Label(fmt.Sprintf("%-12s", "Calls:")), ui.CountText(result.Calls))
	fmt.Printf("  %s %s\n", ui.Label(fmt.Sprintf("%-12s", "Inherits:")), ui.CountText(result.Inherits))
	fmt.Printf("  %s %s\n", ui.Label(fmt.Sprintf("%-12s", "Embeddings:")), ui.CountText(result.Embeddings))

	if result.Error != "" {
		fmt.Println()
		ui.Warning(result.Error)
	}
}

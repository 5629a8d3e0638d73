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

// Package main implements the codelibrarian CLI for indexing a repository
// and querying its code index.
//
// Usage:
//
//	codelibrarian init                     Create .codelibrarian/config.toml
//	codelibrarian index                    Index the current repository
//	codelibrarian status [--json]          Show project status
//	codelibrarian search <query> [--json]  Search the index
//	codelibrarian reset --yes              Delete all local index data
//	codelibrarian install-hook             Install git post-commit hook
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/codelibrarian/codelibrarian/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags meaningful across every subcommand.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to the project root (default: current directory)")
		jsonOutput  = flag.Bool("json", false, "Output machine-readable JSON where supported")
		quiet       = flag.Bool("quiet", false, "Suppress progress output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `codelibrarian - local code index and search CLI

Usage:
  codelibrarian <command> [options]

Commands:
  init          Create .codelibrarian/config.toml
  index         Index the current repository
  status        Show project status
  search        Search the code index
  reset         Delete all local index data (destructive!)
  install-hook  Install a git post-commit hook for auto-indexing
  completion    Generate shell completion scripts

Global Options:
  --config      Path to the project root
  --json        Output machine-readable JSON where supported
  --quiet       Suppress progress output
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  codelibrarian init
  codelibrarian index
  codelibrarian index --full
  codelibrarian status --json
  codelibrarian search "who calls NewPipeline"

Data Storage:
  Data is stored in <project>/.codelibrarian/index.db

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("codelibrarian version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{JSON: *jsonOutput, Quiet: *quiet || *jsonOutput, NoColor: *noColor}
	ui.InitColors(globals.NoColor || globals.JSON)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath)
	case "search":
		runSearch(cmdArgs, *configPath)
	case "reset":
		runReset(cmdArgs, *configPath)
	case "install-hook":
		runInstallHook(cmdArgs, *configPath)
	case "completion":
		runCompletion(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

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
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/codelibrarian/codelibrarian/internal/config"
	"github.com/codelibrarian/codelibrarian/internal/errors"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive, noHook, withHook bool
	embedAPIURL, embedModel                 string
	rewriteAPIURL, rewriteModel             string
}

// runInit creates .codelibrarian/config.toml, optionally walking the user
// through the embeddings and query-rewrite settings, and offers to install
// the post-commit hook.
//
// Examples:
//
//	codelibrarian init         Interactive setup
//	codelibrarian init -y      Use all defaults
func runInit(args []string) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot get current directory",
			err.Error(),
			"This is a bug. Please report it at github.com/codelibrarian/codelibrarian/issues",
			err,
		), false)
	}

	configPath := config.Path(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		errors.FatalError(errors.NewConfigError(
			"Configuration already exists",
			fmt.Sprintf("%s already exists", configPath),
			"Use --force to overwrite the existing configuration",
			nil,
		), false)
	}

	cfg := config.Default(cwd)
	applyInitFlags(cfg, flags)

	reader := bufio.NewReader(os.Stdin)
	if !flags.nonInteractive {
		runInteractiveConfig(reader, cfg)
	}

	saveInitConfig(cwd, configPath, cfg)
	handleHookInstallation(reader, flags)
	printNextSteps(flags.noHook)
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVar(&f.nonInteractive, "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.embedAPIURL, "embed-url", "", "OpenAI-compatible embeddings endpoint")
	fs.StringVar(&f.embedModel, "embed-model", "", "Embedding model name")
	fs.StringVar(&f.rewriteAPIURL, "rewrite-url", "", "OpenAI-compatible chat endpoint for query rewriting")
	fs.StringVar(&f.rewriteModel, "rewrite-model", "", "Query-rewrite chat model name")
	fs.BoolVar(&f.noHook, "no-hook", false, "Skip git hook installation (hook is installed by default)")
	fs.BoolVar(&f.withHook, "hook", false, "Install git hook without prompting (for scripts)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codelibrarian init [options]

Creates .codelibrarian/config.toml.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func applyInitFlags(cfg *config.Config, f initFlags) {
	if f.embedAPIURL != "" {
		cfg.Embeddings.Enabled = true
		cfg.Embeddings.APIURL = f.embedAPIURL
	}
	if f.embedModel != "" {
		cfg.Embeddings.Model = f.embedModel
	}
	if f.rewriteAPIURL != "" {
		cfg.QueryRewrite.Enabled = true
		cfg.QueryRewrite.APIURL = f.rewriteAPIURL
	}
	if f.rewriteModel != "" {
		cfg.QueryRewrite.Model = f.rewriteModel
	}
}

func runInteractiveConfig(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("codelibrarian project configuration")
	fmt.Println("====================================")
	fmt.Println()

	enableEmbed := prompt(reader, "Enable semantic search (requires an embeddings endpoint)? (y/N)", "n")
	if strings.ToLower(strings.TrimSpace(enableEmbed)) == "y" {
		cfg.Embeddings.Enabled = true
		cfg.Embeddings.APIURL = prompt(reader, "Embeddings API URL", cfg.Embeddings.APIURL)
		cfg.Embeddings.Model = prompt(reader, "Embedding model", cfg.Embeddings.Model)
		dimsStr := prompt(reader, "Embedding dimensions", strconv.Itoa(cfg.Embeddings.Dimensions))
		if n, err := strconv.Atoi(dimsStr); err == nil && n > 0 {
			cfg.Embeddings.Dimensions = n
		}
	}

	fmt.Println()
	enableRewrite := prompt(reader, "Enable query rewriting for natural-language search (y/N)", "n")
	if strings.ToLower(strings.TrimSpace(enableRewrite)) == "y" {
		cfg.QueryRewrite.Enabled = true
		cfg.QueryRewrite.APIURL = prompt(reader, "Chat-completions API URL", cfg.QueryRewrite.APIURL)
		cfg.QueryRewrite.Model = prompt(reader, "Chat model", cfg.QueryRewrite.Model)
	}
	fmt.Println()
}

func saveInitConfig(cwd, configPath string, cfg *config.Config) {
	if err := os.MkdirAll(filepath.Join(cwd, config.ProjectDir), 0o750); err != nil {
		errors.FatalError(errors.NewPermissionError(
			"Cannot create configuration directory",
			err.Error(),
			fmt.Sprintf("Check write permissions for %s", cwd),
			err,
		), false)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot marshal configuration",
			err.Error(),
			"This is a bug. Please report it at github.com/codelibrarian/codelibrarian/issues",
			err,
		), false)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		errors.FatalError(errors.NewPermissionError(
			"Cannot save configuration",
			err.Error(),
			fmt.Sprintf("Check write permissions for %s", configPath),
			err,
		), false)
	}
	fmt.Printf("Created %s\n", configPath)
	addToGitignore(cwd)
}

// addToGitignore adds .codelibrarian/ to the project's .gitignore file if
// not already present. It silently returns if .gitignore does not exist.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}

	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == ".codelibrarian/" || line == ".codelibrarian" || line == "/.codelibrarian/" || line == "/.codelibrarian" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# codelibrarian local index\n.codelibrarian/\n")
	fmt.Println("Added .codelibrarian/ to .gitignore")
}

func handleHookInstallation(reader *bufio.Reader, f initFlags) {
	if f.noHook {
		return
	}
	shouldInstall := f.withHook
	if !f.withHook && !f.nonInteractive {
		fmt.Println()
		hookAnswer := prompt(reader, "Install git hook for auto-indexing? (Y/n)", "y")
		hookAnswer = strings.ToLower(strings.TrimSpace(hookAnswer))
		shouldInstall = hookAnswer != "n" && hookAnswer != "no"
	} else if f.nonInteractive {
		shouldInstall = true
	}

	if !shouldInstall {
		return
	}
	gitDir, err := findGitDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot find .git directory: %v\n", err)
		return
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")
	if err := installHook(hookPath, false); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot install git hook: %v\n", err)
	} else {
		fmt.Printf("Git hook installed: %s\n", hookPath)
	}
}

func printNextSteps(noHook bool) {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .codelibrarian/config.toml if needed")
	fmt.Println("  2. Run 'codelibrarian index' to index your repository")
	fmt.Println("  3. Run 'codelibrarian status' to verify indexing")
	if noHook {
		fmt.Println()
		fmt.Println("Tip: run 'codelibrarian install-hook' to enable auto-indexing on each commit")
	}
}

// prompt displays an interactive prompt and reads user input from stdin,
// returning defaultValue if the user presses Enter without typing anything.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

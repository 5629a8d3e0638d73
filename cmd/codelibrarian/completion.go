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
	"flag"
	"fmt"
	"os"

	"github.com/codelibrarian/codelibrarian/internal/errors"
)

// bashCompletionTemplate is the bash completion script for codelibrarian.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for codelibrarian
# Installation:
#   source <(codelibrarian completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(codelibrarian completion bash)' >> ~/.bashrc

_codelibrarian_completion() {
    local cur prev commands
    commands="init index status search reset install-hook completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --config --json --quiet --no-color" -- ${cur}) )
        return 0
    fi

    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--full --workers --debug --metrics-addr" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        search)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json --limit --mode --rewrite --timeout" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--yes" -- ${cur}) )
            fi
            ;;
        install-hook)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force --remove" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _codelibrarian_completion codelibrarian
`

// zshCompletionTemplate is the zsh completion script for codelibrarian.
const zshCompletionTemplate = `#compdef codelibrarian

# Zsh completion script for codelibrarian
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      codelibrarian completion zsh > "${fpath[1]}/_codelibrarian"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_codelibrarian() {
    local -a commands
    commands=(
        'init:Create .codelibrarian/config.toml'
        'index:Index the current repository'
        'status:Show project status'
        'search:Search the code index'
        'reset:Delete all local index data'
        'install-hook:Install git post-commit hook'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to the project root]:directory:_files -/' \
        '--json[Output machine-readable JSON]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                index)
                    _arguments \
                        '--full[Force full reindex]' \
                        '--workers[Number of parse workers]:workers:' \
                        '--debug[Enable debug logging]' \
                        '--metrics-addr[Prometheus metrics address]:address:'
                    ;;
                status)
                    _arguments \
                        '--json[Output as JSON]'
                    ;;
                search)
                    _arguments \
                        '--json[Output as JSON]' \
                        '--limit[Maximum number of results]:limit:' \
                        '--mode[Search mode]:mode:(hybrid text semantic)' \
                        '1:query:'
                    ;;
                reset)
                    _arguments \
                        '--yes[Skip confirmation prompt]'
                    ;;
                install-hook)
                    _arguments \
                        '--force[Overwrite existing hook]' \
                        '--remove[Remove the hook]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_codelibrarian
`

// fishCompletionTemplate is the fish completion script for codelibrarian.
const fishCompletionTemplate = `# Fish completion script for codelibrarian
# Installation:
#   1. Load completions for current session:
#      codelibrarian completion fish | source
#   2. Install permanently:
#      codelibrarian completion fish > ~/.config/fish/completions/codelibrarian.fish

complete -c codelibrarian -f -n "__fish_use_subcommand" -a "init" -d "Create .codelibrarian/config.toml"
complete -c codelibrarian -f -n "__fish_use_subcommand" -a "index" -d "Index the current repository"
complete -c codelibrarian -f -n "__fish_use_subcommand" -a "status" -d "Show project status"
complete -c codelibrarian -f -n "__fish_use_subcommand" -a "search" -d "Search the code index"
complete -c codelibrarian -f -n "__fish_use_subcommand" -a "reset" -d "Delete all local index data (destructive!)"
complete -c codelibrarian -f -n "__fish_use_subcommand" -a "install-hook" -d "Install git post-commit hook"
complete -c codelibrarian -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

complete -c codelibrarian -l version -d "Show version and exit"
complete -c codelibrarian -l config -d "Path to the project root" -r
complete -c codelibrarian -l json -d "Output machine-readable JSON"

complete -c codelibrarian -n "__fish_seen_subcommand_from index" -l full -d "Force full reindex"
complete -c codelibrarian -n "__fish_seen_subcommand_from index" -l workers -d "Number of parse workers" -r
complete -c codelibrarian -n "__fish_seen_subcommand_from index" -l debug -d "Enable debug logging"
complete -c codelibrarian -n "__fish_seen_subcommand_from index" -l metrics-addr -d "Prometheus metrics address" -r

complete -c codelibrarian -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"

complete -c codelibrarian -n "__fish_seen_subcommand_from search" -l json -d "Output as JSON"
complete -c codelibrarian -n "__fish_seen_subcommand_from search" -l limit -d "Maximum number of results" -r
complete -c codelibrarian -n "__fish_seen_subcommand_from search" -l mode -d "Search mode" -xa "hybrid text semantic"

complete -c codelibrarian -n "__fish_seen_subcommand_from reset" -l yes -d "Skip confirmation prompt"

complete -c codelibrarian -n "__fish_seen_subcommand_from install-hook" -l force -d "Overwrite existing hook"
complete -c codelibrarian -n "__fish_seen_subcommand_from install-hook" -l remove -d "Remove the hook"

complete -c codelibrarian -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c codelibrarian -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c codelibrarian -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' CLI command, generating a
// shell-specific completion script for bash, zsh, or fish.
//
// Examples:
//
//	codelibrarian completion bash
//	source <(codelibrarian completion bash)
func runCompletion(args []string, configPath string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codelibrarian completion <shell>

Generates a shell completion script for bash, zsh, or fish.

Examples:
  codelibrarian completion bash
  source <(codelibrarian completion bash)
  codelibrarian completion zsh > "${fpath[1]}/_codelibrarian"
  codelibrarian completion fish > ~/.config/fish/completions/codelibrarian.fish

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'codelibrarian completion bash', 'codelibrarian completion zsh', or 'codelibrarian completion fish'",
		), false)
	}

	switch fs.Arg(0) {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell %q is not supported. Valid options: bash, zsh, fish", fs.Arg(0)),
			"Run 'codelibrarian completion bash', 'codelibrarian completion zsh', or 'codelibrarian completion fish'",
		), false)
	}
}

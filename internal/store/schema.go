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

package store

// schema is applied on every Open call. Every statement uses IF NOT EXISTS so
// opening an existing database is idempotent.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS files (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	path      TEXT NOT NULL UNIQUE,
	rel_path  TEXT NOT NULL,
	language  TEXT NOT NULL,
	mod_time  INTEGER NOT NULL,
	hash      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id        INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	kind           TEXT NOT NULL,
	parent_id      INTEGER REFERENCES symbols(id) ON DELETE SET NULL,
	parent_qname   TEXT NOT NULL DEFAULT '',
	start_line     INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	signature      TEXT NOT NULL DEFAULT '',
	documentation  TEXT NOT NULL DEFAULT '',
	return_type    TEXT NOT NULL DEFAULT '',
	decorators     TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_qname ON symbols(qualified_name);
CREATE INDEX IF NOT EXISTS idx_symbols_parent_qname ON symbols(parent_qname);

CREATE TABLE IF NOT EXISTS parameters (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol_id     INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	name          TEXT NOT NULL,
	type          TEXT NOT NULL DEFAULT '',
	default_value TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_parameters_symbol ON parameters(symbol_id);

CREATE TABLE IF NOT EXISTS imports (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	from_file_id   INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	to_module      TEXT NOT NULL,
	import_name    TEXT NOT NULL DEFAULT '',
	resolved_file  INTEGER REFERENCES files(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_imports_from ON imports(from_file_id);
CREATE INDEX IF NOT EXISTS idx_imports_module ON imports(to_module);

CREATE TABLE IF NOT EXISTS calls (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	caller_symbol_id  INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	target_qname      TEXT NOT NULL,
	line              INTEGER NOT NULL,
	resolved_symbol   INTEGER REFERENCES symbols(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller_symbol_id);
CREATE INDEX IF NOT EXISTS idx_calls_target ON calls(target_qname);
CREATE INDEX IF NOT EXISTS idx_calls_resolved ON calls(resolved_symbol);

CREATE TABLE IF NOT EXISTS inherits (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	child_symbol_id  INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	parent_qname     TEXT NOT NULL,
	resolved_symbol  INTEGER REFERENCES symbols(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_inherits_child ON inherits(child_symbol_id);
CREATE INDEX IF NOT EXISTS idx_inherits_resolved ON inherits(resolved_symbol);

CREATE TABLE IF NOT EXISTS embeddings (
	symbol_id  INTEGER PRIMARY KEY REFERENCES symbols(id) ON DELETE CASCADE,
	dims       INTEGER NOT NULL,
	vector     BLOB NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
	name, qualified_name, documentation, signature,
	content='symbols', content_rowid='id', tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
	INSERT INTO symbols_fts(rowid, name, qualified_name, documentation, signature)
	VALUES (new.id, new.name, new.qualified_name, new.documentation, new.signature);
END;

CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, documentation, signature)
	VALUES ('delete', old.id, old.name, old.qualified_name, old.documentation, old.signature);
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name, documentation, signature)
	VALUES ('delete', old.id, old.name, old.qualified_name, old.documentation, old.signature);
	INSERT INTO symbols_fts(rowid, name, qualified_name, documentation, signature)
	VALUES (new.id, new.name, new.qualified_name, new.documentation, new.signature);
END;
`
